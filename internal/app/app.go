package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/heartmarshall/submission-backend/internal/auth"
	"github.com/heartmarshall/submission-backend/internal/config"
	"github.com/heartmarshall/submission-backend/internal/dictgraph"
	"github.com/heartmarshall/submission-backend/internal/identifier"
	"github.com/heartmarshall/submission-backend/internal/schemavalidator"
	"github.com/heartmarshall/submission-backend/internal/service/cascade"
	"github.com/heartmarshall/submission-backend/internal/service/category"
	"github.com/heartmarshall/submission-backend/internal/service/commit"
	"github.com/heartmarshall/submission-backend/internal/service/dictionary"
	"github.com/heartmarshall/submission-backend/internal/service/submission"
	"github.com/heartmarshall/submission-backend/internal/service/submitteddata"
	"github.com/heartmarshall/submission-backend/internal/service/validation"
	"github.com/heartmarshall/submission-backend/internal/transport/middleware"
	"github.com/heartmarshall/submission-backend/internal/transport/rest"
	"github.com/heartmarshall/submission-backend/internal/worker"
)

const rateLimitCleanupInterval = 5 * time.Minute

// App is the wired application: storage, services, the background task
// runner and the HTTP handler.
type App struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *storage
	runner  *worker.Runner
	limiter *middleware.RateLimiter
	handler http.Handler

	JWT           *auth.JWTManager
	Dictionaries  *dictionary.Service
	Categories    *category.Service
	Submissions   *submission.Service
	SubmittedData *submitteddata.Service
}

// New connects storage and wires every service. Call Shutdown to release it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := openStorage(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	ids, err := identifier.New(identifier.Strategy(cfg.Submission.SystemIDStrategy))
	if err != nil {
		store.close()
		return nil, err
	}

	graphs := dictgraph.NewCache()
	validator := validation.NewValidator(schemavalidator.New())
	resolver := cascade.NewResolver(logger, store.submittedData)

	runner := worker.NewRunner(logger, worker.Config{
		TaskTimeout:     cfg.Submission.TaskTimeout,
		MaxRetries:      cfg.Submission.MaxRetries,
		InitialInterval: cfg.Submission.RetryInitialInterval,
		MaxInterval:     cfg.Submission.RetryMaxInterval,
		MaxPending:      cfg.Submission.MaxPendingTasks,
	}, nil)

	committer := commit.NewService(logger,
		store.submissions, store.submittedData, store.categories, store.dictionaries,
		store.audit, validator, ids, store.tx,
	)
	submissions := submission.NewService(logger,
		store.submissions, store.submittedData, store.categories, store.dictionaries,
		graphs, resolver, validator, committer, runner, store.tx,
	)
	runner.SetFailureHandler(submissions.RecordFailure)

	a := &App{
		cfg:           cfg,
		log:           logger,
		store:         store,
		runner:        runner,
		JWT:           auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL),
		Dictionaries:  dictionary.NewService(logger, store.dictionaries, graphs),
		Categories:    category.NewService(logger, store.categories, store.dictionaries),
		Submissions:   submissions,
		SubmittedData: submitteddata.NewService(logger, store.submittedData, store.audit, store.categories, store.dictionaries, graphs, resolver),
	}
	a.handler = a.buildHandler()

	return a, nil
}

func (a *App) buildHandler() http.Handler {
	var mutating middleware.Middleware
	if n := a.cfg.Server.RateLimitPerMinute; n > 0 {
		a.limiter = middleware.NewRateLimiter(rateLimitCleanupInterval)
		mutating = a.limiter.Limit(n)
	}

	mux := rest.NewRouter(rest.Handlers{
		Health:        rest.NewHealthHandler(a.store.db, a.runner, BuildVersion()),
		Dictionary:    rest.NewDictionaryHandler(a.Dictionaries, a.log),
		Category:      rest.NewCategoryHandler(a.Categories, a.log),
		Submission:    rest.NewSubmissionHandler(a.Submissions, a.log),
		SubmittedData: rest.NewSubmittedDataHandler(a.SubmittedData, a.log),
	}, mutating)

	// Logger runs inside Auth so access logs carry the caller's user id.
	return middleware.Chain(
		middleware.Recovery(a.log),
		middleware.RequestID(),
		middleware.CORS(a.cfg.CORS),
		middleware.MaxBytes(a.cfg.Server.MaxBodyBytes),
		middleware.Auth(a.JWT),
		middleware.Logger(a.log),
	)(mux)
}

// Handler returns the HTTP handler with the full middleware chain.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Wait blocks until every queued background task has finished.
func (a *App) Wait() {
	a.runner.Wait()
}

// Shutdown drains background tasks within ctx and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	err := a.runner.Shutdown(ctx)
	if err != nil {
		a.log.Warn("background tasks did not drain", slog.String("error", err.Error()))
	}
	a.store.close()
	return err
}

// Run is the application entry point. It loads configuration, wires the
// application and serves HTTP until ctx is cancelled or the process receives
// SIGINT or SIGTERM.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("database_driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           a.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
		logger.Error("http server shutdown", slog.String("error", sErr.Error()))
	}
	if sErr := a.Shutdown(shutdownCtx); sErr != nil && err == nil {
		err = sErr
	}
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("stopped")
	return nil
}
