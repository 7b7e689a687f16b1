package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/adapter/memory"
	"github.com/heartmarshall/submission-backend/internal/adapter/postgres"
	auditrepo "github.com/heartmarshall/submission-backend/internal/adapter/postgres/audit"
	categoryrepo "github.com/heartmarshall/submission-backend/internal/adapter/postgres/category"
	dictionaryrepo "github.com/heartmarshall/submission-backend/internal/adapter/postgres/dictionary"
	submissionrepo "github.com/heartmarshall/submission-backend/internal/adapter/postgres/submission"
	submitteddatarepo "github.com/heartmarshall/submission-backend/internal/adapter/postgres/submitteddata"
	"github.com/heartmarshall/submission-backend/internal/config"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// The repository method sets below are the union of what the services
// consume; both storage drivers satisfy them.

type dictionaryStore interface {
	Create(ctx context.Context, dict domain.Dictionary) (domain.Dictionary, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Dictionary, error)
	GetByNameVersion(ctx context.Context, name, version string) (domain.Dictionary, error)
	List(ctx context.Context) ([]domain.Dictionary, error)
}

type categoryStore interface {
	Create(ctx context.Context, cat domain.Category) (domain.Category, error)
	UpdateActiveDictionary(ctx context.Context, id, dictionaryID, updatedBy uuid.UUID, updatedAt time.Time) (domain.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

type submissionStore interface {
	Create(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error)
	Update(ctx context.Context, sub domain.ActiveSubmission) (domain.ActiveSubmission, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ActiveSubmission, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.ActiveSubmission, error)
	GetActive(ctx context.Context, categoryID uuid.UUID, organization string, userID uuid.UUID) (domain.ActiveSubmission, error)
	List(ctx context.Context, q domain.SubmissionQuery) ([]domain.ActiveSubmission, error)
}

type submittedDataStore interface {
	Create(ctx context.Context, row domain.SubmittedData) (domain.SubmittedData, error)
	Update(ctx context.Context, row domain.SubmittedData) (domain.SubmittedData, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetBySystemID(ctx context.Context, systemID string) (domain.SubmittedData, error)
	ExistsBySystemID(ctx context.Context, systemID string) (bool, error)
	ListByFilter(ctx context.Context, categoryID uuid.UUID, organization string, f domain.DataFilter) ([]domain.SubmittedData, error)
	List(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) ([]domain.SubmittedData, error)
	Count(ctx context.Context, categoryID uuid.UUID, organization string, q domain.SubmittedDataQuery) (int, error)
}

type auditStore interface {
	Log(ctx context.Context, record domain.AuditRecord) error
	List(ctx context.Context, q domain.AuditQuery) ([]domain.AuditRecord, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// storage bundles the repositories of one driver.
type storage struct {
	dictionaries  dictionaryStore
	categories    categoryStore
	submissions   submissionStore
	submittedData submittedDataStore
	audit         auditStore
	tx            txRunner
	db            pinger
	close         func()
}

// openStorage connects the configured driver. For postgres it applies pending
// migrations first when AutoMigrate is set.
func openStorage(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		store := memory.New()
		log.Warn("using in-memory storage; data is lost on restart")
		return &storage{
			dictionaries:  store.Dictionaries(),
			categories:    store.Categories(),
			submissions:   store.Submissions(),
			submittedData: store.SubmittedData(),
			audit:         store.Audit(),
			tx:            store,
			db:            store,
			close:         func() {},
		}, nil

	case config.DriverPostgres:
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, cfg.DSN, log); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}

		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("connected to database",
			slog.Int("max_conns", int(cfg.MaxConns)),
			slog.Int("min_conns", int(cfg.MinConns)),
		)

		return &storage{
			dictionaries:  dictionaryrepo.New(pool),
			categories:    categoryrepo.New(pool),
			submissions:   submissionrepo.New(pool),
			submittedData: submitteddatarepo.New(pool),
			audit:         auditrepo.New(pool),
			tx:            postgres.NewTxManager(pool),
			db:            pool,
			close:         pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
