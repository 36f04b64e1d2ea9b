package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/visionsmith/argus-api/internal/config"
	"github.com/visionsmith/argus-api/internal/domain"
	"github.com/visionsmith/argus-api/internal/events"
	"github.com/visionsmith/argus-api/internal/platform/gemini"
	"github.com/visionsmith/argus-api/internal/platform/imagefetch"
	"github.com/visionsmith/argus-api/internal/platform/postgres"
	"github.com/visionsmith/argus-api/internal/platform/rediscache"
	"github.com/visionsmith/argus-api/internal/scheduler"
	"github.com/visionsmith/argus-api/internal/service"
	"github.com/visionsmith/argus-api/internal/service/auth"
	"github.com/visionsmith/argus-api/internal/store"
	"github.com/visionsmith/argus-api/internal/task"
	"github.com/visionsmith/argus-api/internal/taxonomy"
)

// application holds the assembled dependencies of the server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db    *sql.DB
	cache task.ResultCache

	scheduler             *scheduler.Scheduler[[]domain.Label]
	classificationService service.ClassificationService
	jwtService            auth.JWTService
	apiKeyVerifier        auth.APIKeyVerifier

	// closers run in reverse order during cleanup.
	closers []func() error
}

// classificationRepository adapts the postgres-backed store to the
// service layer's repository interface, carrying the *sql.DB handle the
// transaction helper needs.
type classificationRepository struct {
	store store.ClassificationStore
	db    *sql.DB
}

func newClassificationRepository(db *sql.DB, logger *slog.Logger) *classificationRepository {
	return &classificationRepository{
		store: postgres.NewPostgresClassificationStore(db, logger),
		db:    db,
	}
}

func (r *classificationRepository) Create(ctx context.Context, c *domain.Classification) error {
	return r.store.Create(ctx, c)
}

func (r *classificationRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Classification, error) {
	return r.store.GetByID(ctx, id)
}

func (r *classificationRepository) WithTx(tx *sql.Tx) service.ClassificationRepository {
	return &classificationRepository{store: r.store.WithTx(tx), db: r.db}
}

func (r *classificationRepository) DB() *sql.DB {
	return r.db
}

// newApplication wires configuration into a ready-to-serve application:
// database and migrations, the result cache, the Gemini classifier, the
// scheduler, and the services and auth components the router needs.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	if err := runMigrations(db, logger); err != nil {
		app.cleanup()
		return nil, err
	}

	classificationStore := postgres.NewPostgresClassificationStore(db, logger)

	// Records orphaned by an unclean shutdown would otherwise stay
	// pending forever. Everything created before this process started
	// is fair game.
	recovered, err := classificationStore.MarkInterrupted(ctx, time.Now())
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to recover interrupted classifications: %w", err)
	}
	if recovered > 0 {
		logger.Warn("failed classifications interrupted by a previous shutdown",
			"count", recovered)
	}

	app.cache = rediscache.NewNoop()
	if cfg.Cache.Addr != "" {
		cache, err := rediscache.New(ctx, cfg.Cache, logger)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to connect to result cache: %w", err)
		}
		app.cache = cache
		app.closers = append(app.closers, cache.Close)
	}

	tax, err := taxonomy.Load(cfg.Classifier.TaxonomyPath)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	logger.Info("taxonomy loaded", "labels", tax.LabelCount())

	imageClassifier, err := gemini.NewGeminiClassifier(ctx, logger, cfg.Classifier, tax)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	app.scheduler = scheduler.New[[]domain.Label](scheduler.Config{
		ConcurrencyLimit: cfg.Scheduler.ConcurrencyLimit,
		DefaultTimeout:   time.Duration(cfg.Scheduler.DefaultTimeoutMs) * time.Millisecond,
	}, logger)

	fetcher := imagefetch.NewFetcher(cfg.Fetch, logger)

	processor, err := task.NewProcessor(
		classificationStore,
		fetcher,
		imageClassifier,
		app.cache,
		cfg.Classifier.MaxLabels,
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task processor: %w", err)
	}

	eventEmitter := events.NewInMemoryEventEmitter(logger)
	eventHandler, err := task.NewClassificationEventHandler(processor, app.scheduler, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create event handler: %w", err)
	}
	eventEmitter.RegisterHandler(eventHandler)

	repo := newClassificationRepository(db, logger)
	classificationService, err := service.NewClassificationService(
		repo,
		processor,
		app.scheduler,
		eventEmitter,
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create classification service: %w", err)
	}
	app.classificationService = classificationService

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	app.jwtService = jwtService

	verifier, err := auth.NewBcryptAPIKeyVerifier(cfg.Auth.APIKeyHash)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create API key verifier: %w", err)
	}
	app.apiKeyVerifier = verifier

	return app, nil
}

// cleanup releases held resources in reverse acquisition order.
func (app *application) cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn("cleanup step failed", "error", err)
		}
	}
	app.closers = nil
}
