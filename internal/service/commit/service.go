// Package commit promotes a VALID active submission into submitted data and
// writes the audit trail, all inside one transaction.
package commit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/service/validation"
)

// MaxIDAttempts bounds systemId generation for one inserted record.
const MaxIDAttempts = 5

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type submissionRepo interface {
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.ActiveSubmission, error)
	Update(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error)
}

type submittedDataRepo interface {
	List(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) ([]domain.SubmittedData, error)
	GetBySystemID(ctx context.Context, systemID string) (domain.SubmittedData, error)
	ExistsBySystemID(ctx context.Context, systemID string) (bool, error)
	Create(ctx context.Context, row domain.SubmittedData) (domain.SubmittedData, error)
	Update(ctx context.Context, row domain.SubmittedData) (domain.SubmittedData, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Category, error)
}

type dictionaryRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Dictionary, error)
}

type auditLogger interface {
	Log(ctx context.Context, record domain.AuditRecord) error
}

type evaluator interface {
	Evaluate(dict *domain.Dictionary, existing []domain.SubmittedData, data domain.SubmissionData) *validation.Evaluation
}

type idGenerator interface {
	Generate(organization, entityName string, record domain.DataRecord, attempt int) (string, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service runs the commit pipeline.
type Service struct {
	log         *slog.Logger
	submissions submissionRepo
	data        submittedDataRepo
	categories  categoryRepo
	dicts       dictionaryRepo
	audit       auditLogger
	validator   evaluator
	ids         idGenerator
	tx          txManager
	now         func() time.Time
}

// NewService creates a commit Service.
func NewService(
	logger *slog.Logger,
	submissions submissionRepo,
	data submittedDataRepo,
	categories categoryRepo,
	dicts dictionaryRepo,
	audit auditLogger,
	validator evaluator,
	ids idGenerator,
	tx txManager,
) *Service {
	return &Service{
		log:         logger.With("service", "commit"),
		submissions: submissions,
		data:        data,
		categories:  categories,
		dicts:       dicts,
		audit:       audit,
		validator:   validator,
		ids:         ids,
		tx:          tx,
		now:         time.Now,
	}
}
