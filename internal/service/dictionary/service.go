// Package dictionary registers dictionaries and serves their dependency
// graphs.
package dictionary

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/dictgraph"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type dictionaryRepo interface {
	Create(ctx context.Context, dict domain.Dictionary) (domain.Dictionary, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Dictionary, error)
	GetByNameVersion(ctx context.Context, name, version string) (domain.Dictionary, error)
	List(ctx context.Context) ([]domain.Dictionary, error)
}

type graphCache interface {
	Get(dict *domain.Dictionary) *dictgraph.Graph
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements the dictionary registry. Registered dictionaries are
// immutable; a change is a new version.
type Service struct {
	log    *slog.Logger
	dicts  dictionaryRepo
	graphs graphCache
	now    func() time.Time
}

// NewService creates a new dictionary Service.
func NewService(logger *slog.Logger, dicts dictionaryRepo, graphs graphCache) *Service {
	return &Service{
		log:    logger.With("service", "dictionary"),
		dicts:  dicts,
		graphs: graphs,
		now:    time.Now,
	}
}
