package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/foodiary/foodiary-api/internal/api"
	"github.com/foodiary/foodiary-api/internal/api/middleware"
	"github.com/foodiary/foodiary-api/internal/config"
	"github.com/foodiary/foodiary-api/internal/events"
	"github.com/foodiary/foodiary-api/internal/platform/gemini"
	"github.com/foodiary/foodiary-api/internal/platform/objectstore"
	"github.com/foodiary/foodiary-api/internal/platform/postgres"
	"github.com/foodiary/foodiary-api/internal/service"
	"github.com/foodiary/foodiary-api/internal/service/auth"
	"github.com/foodiary/foodiary-api/internal/task"
)

// application bundles the assembled components of the server so startup
// and shutdown can be driven from one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	mealStore   *postgres.PostgresMealStore
	taskStore   *postgres.PostgresTaskStore
	objectStore *objectstore.MinioStore

	recognizer    *gemini.GeminiRecognizer
	tokenVerifier auth.TokenVerifier
	mealService   service.MealService

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
	notifier     *objectstore.UploadNotifier

	mealHandler    *api.MealHandler
	authMiddleware *middleware.AuthMiddleware

	// notifierCancel stops the bucket notification listener.
	notifierCancel context.CancelFunc
}

// newApplication wires every component of the server together. It applies
// pending schema migrations, builds the stores, the recognition client,
// the task machinery and the HTTP layer, and recovers any tasks left in
// flight by a previous run.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		closeDatabase(db, logger)
		return nil, err
	}

	mealStore := postgres.NewPostgresMealStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db)

	objectStore, err := objectstore.NewMinioStore(cfg.Storage)
	if err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to set up object storage: %w", err)
	}

	recognizer, err := gemini.NewGeminiRecognizer(context.Background(), logger, cfg.Recognition)
	if err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}

	tokenVerifier, err := auth.NewTokenVerifier(cfg.Auth)
	if err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	mealService, err := service.NewMealService(
		mealStore,
		db,
		objectStore,
		cfg.Storage.UploadPrefix,
		time.Duration(cfg.Storage.PresignExpiryMins)*time.Minute,
		logger,
	)
	if err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to create meal service: %w", err)
	}

	factory := task.NewMealProcessingTaskFactory(
		mealStore,
		objectStore,
		recognizer,
		time.Duration(cfg.Recognition.TimeoutSeconds)*time.Second,
		logger,
	)

	runner := setupTaskRunner(taskStore, factory, cfg, logger)

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(factory, runner, logger))

	notifier := objectstore.NewUploadNotifier(objectStore, cfg.Storage, emitter, logger)

	app := &application{
		config:         cfg,
		logger:         logger,
		db:             db,
		mealStore:      mealStore,
		taskStore:      taskStore,
		objectStore:    objectStore,
		recognizer:     recognizer,
		tokenVerifier:  tokenVerifier,
		mealService:    mealService,
		eventEmitter:   emitter,
		taskRunner:     runner,
		notifier:       notifier,
		mealHandler:    api.NewMealHandler(mealService),
		authMiddleware: middleware.NewAuthMiddleware(tokenVerifier),
	}

	return app, nil
}

// setupTaskRunner builds the background runner and installs the resolver
// that turns recovered task rows back into executable tasks.
func setupTaskRunner(
	taskStore task.TaskStore,
	factory *task.MealProcessingTaskFactory,
	cfg *config.Config,
	logger *slog.Logger,
) *task.TaskRunner {
	runnerConfig := task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}

	runner := task.NewTaskRunner(taskStore, runnerConfig, logger)

	// The resolver must be installed before Start so recovered rows can
	// be rehydrated into runnable tasks.
	runner.SetTaskResolver(factory.ResolveTask)

	return runner
}

// Run starts the task runner, the upload notification listener and the
// HTTP server, blocking until shutdown.
func (app *application) Run() error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	notifierCtx, cancel := context.WithCancel(context.Background())
	app.notifierCancel = cancel
	go app.notifier.Run(notifierCtx)

	router := app.setupRouter()
	return startHTTPServer(app.config, router, app.logger)
}

// cleanup releases resources in reverse order of acquisition. Safe to
// call after a failed Run.
func (app *application) cleanup() {
	if app.notifierCancel != nil {
		app.notifierCancel()
	}

	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	closeDatabase(app.db, app.logger)
}

func closeDatabase(db *sql.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Warn("failed to close database connection", "error", err)
	}
}
