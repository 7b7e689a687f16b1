// Package submission implements the active submission state machine. Calls
// validate and return immediately; the data changes themselves run as
// background tasks, one at a time per submission.
package submission

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/dictgraph"
	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/service/validation"
	"github.com/heartmarshall/submission-backend/internal/worker"
)

// Background task operations, as recorded in a submission failure.
const (
	OperationSubmit       = "submit"
	OperationEdit         = "edit"
	OperationDeleteData   = "delete-data"
	OperationDeleteEntity = "delete-entity"
	OperationRevalidate   = "revalidate"
	OperationCommit       = "commit"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type submissionRepo interface {
	Create(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error)
	Update(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ActiveSubmission, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.ActiveSubmission, error)
	GetActive(ctx context.Context, categoryID uuid.UUID, organization string, userID uuid.UUID) (domain.ActiveSubmission, error)
	List(ctx context.Context, q domain.SubmissionQuery) ([]domain.ActiveSubmission, error)
}

type submittedDataRepo interface {
	GetBySystemID(ctx context.Context, systemID string) (domain.SubmittedData, error)
	List(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) ([]domain.SubmittedData, error)
}

type categoryRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Category, error)
}

type dictionaryRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Dictionary, error)
}

type graphProvider interface {
	Get(dict *domain.Dictionary) *dictgraph.Graph
}

type cascadeResolver interface {
	Dependents(ctx context.Context, children map[string][]dictgraph.ChildRelation, root domain.SubmittedData) ([]domain.SubmittedData, error)
}

type submissionValidator interface {
	Validate(dict *domain.Dictionary, existing []domain.SubmittedData, data domain.SubmissionData) validation.Result
}

type committer interface {
	Commit(ctx context.Context, submissionID, userID uuid.UUID) (domain.ActiveSubmission, error)
}

type taskRunner interface {
	Submit(t worker.Task) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service drives active submissions through OPEN, VALID and INVALID to the
// terminal CLOSED and COMMITTED states.
type Service struct {
	log         *slog.Logger
	submissions submissionRepo
	data        submittedDataRepo
	categories  categoryRepo
	dicts       dictionaryRepo
	graphs      graphProvider
	cascade     cascadeResolver
	validator   submissionValidator
	committer   committer
	tasks       taskRunner
	tx          txManager
	now         func() time.Time
}

// NewService creates a submission Service.
func NewService(
	logger *slog.Logger,
	submissions submissionRepo,
	data submittedDataRepo,
	categories categoryRepo,
	dicts dictionaryRepo,
	graphs graphProvider,
	cascade cascadeResolver,
	validator submissionValidator,
	committer committer,
	tasks taskRunner,
	tx txManager,
) *Service {
	return &Service{
		log:         logger.With("service", "submission"),
		submissions: submissions,
		data:        data,
		categories:  categories,
		dicts:       dicts,
		graphs:      graphs,
		cascade:     cascade,
		validator:   validator,
		committer:   committer,
		tasks:       tasks,
		tx:          tx,
		now:         time.Now,
	}
}
