// Package submitteddata serves committed records, their dependents and their
// audit history.
package submitteddata

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/dictgraph"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// DefaultPageSize applies when a listing asks for no limit.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

type submittedDataRepo interface {
	GetBySystemID(ctx context.Context, systemID string) (domain.SubmittedData, error)
	List(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) ([]domain.SubmittedData, error)
	Count(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) (int, error)
}

type auditRepo interface {
	List(ctx context.Context, q domain.AuditQuery) ([]domain.AuditRecord, error)
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

// Service is the read side of committed data.
type Service struct {
	log        *slog.Logger
	data       submittedDataRepo
	audit      auditRepo
	categories categoryRepo
	dicts      dictionaryRepo
	graphs     graphProvider
	cascade    cascadeResolver
}

// NewService creates a submitted data Service.
func NewService(
	logger *slog.Logger,
	data submittedDataRepo,
	audit auditRepo,
	categories categoryRepo,
	dicts dictionaryRepo,
	graphs graphProvider,
	cascade cascadeResolver,
) *Service {
	return &Service{
		log:        logger.With("service", "submitteddata"),
		data:       data,
		audit:      audit,
		categories: categories,
		dicts:      dicts,
		graphs:     graphs,
		cascade:    cascade,
	}
}
