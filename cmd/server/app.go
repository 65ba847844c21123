package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PitokDf/express-app-useable/internal/api"
	"github.com/PitokDf/express-app-useable/internal/api/credential"
	apiMiddleware "github.com/PitokDf/express-app-useable/internal/api/middleware"
	"github.com/PitokDf/express-app-useable/internal/cache"
	"github.com/PitokDf/express-app-useable/internal/config"
	"github.com/PitokDf/express-app-useable/internal/events"
	"github.com/PitokDf/express-app-useable/internal/platform/mail"
	"github.com/PitokDf/express-app-useable/internal/redact"
	"github.com/PitokDf/express-app-useable/internal/service"
	"github.com/PitokDf/express-app-useable/internal/service/auth"
	"github.com/PitokDf/express-app-useable/internal/store"
	"github.com/PitokDf/express-app-useable/internal/task"
	"github.com/PitokDf/express-app-useable/internal/upload"
)

// limiterSweepInterval is how often idle rate-limit buckets are dropped.
const limiterSweepInterval = time.Minute

// application holds the shared dependencies so they can be wired once and
// released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	cache       *cache.Cache
	jwtService  auth.JWTService
	revocations *auth.RevocationList
	transport   credential.Transport
	mailer      mail.Mailer
	emitter     *events.InMemoryEventEmitter
	taskRunner  *task.Runner
	userService *service.UserService
	uploads     *upload.Service
	uploadDir   string
	limiter     *apiMiddleware.RateLimiter
	stopSweeper chan struct{}
}

// newApplication wires every component. The database and user store are
// passed in so tests can substitute them.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB, users store.UserStore) (_ *application, err error) {
	app := &application{
		config:      cfg,
		logger:      logger,
		db:          db,
		stopSweeper: make(chan struct{}),
	}
	defer func() {
		if err != nil {
			app.release()
		}
	}()

	app.cache, err = newCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.revocations = auth.NewRevocationList(app.cache)

	app.transport, err = credential.New(cfg.Auth)
	if err != nil {
		return nil, err
	}

	app.mailer, err = newMailer(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}

	app.taskRunner = task.NewRunner(cfg.Task, logger)
	app.taskRunner.SetErrorHandler(func(t task.Task, err error) {
		logger.Error("background task failed",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", redact.Error(err)))
	})
	app.taskRunner.Start()

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.Subscribe(events.TypeUserRegistered,
		task.NewWelcomeEmailHandler(app.mailer, app.taskRunner, logger))

	app.userService, err = service.NewUserService(
		users,
		db,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		app.cache,
		app.emitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	uploadStore, err := app.newUploadStore()
	if err != nil {
		return nil, err
	}
	app.uploads = upload.NewService(uploadStore, cfg.Upload, logger)

	app.limiter = apiMiddleware.NewRateLimiter(cfg.RateLimit)
	go app.limiter.RunSweeper(limiterSweepInterval, app.stopSweeper)

	logger.Info("application initialized")
	return app, nil
}

func newCache(cfg config.CacheConfig, logger *slog.Logger) (*cache.Cache, error) {
	var backend cache.Backend
	switch cfg.Backend {
	case "redis":
		backend = cache.NewRedisBackend(cfg)
	case "memory":
		backend = cache.NewMemoryBackend(cfg.SweepInterval())
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
	logger.Info("cache initialized", slog.String("backend", cfg.Backend))
	return cache.New(backend, cfg.DefaultTTL(), logger), nil
}

// newMailer uses SMTP when a host is configured and falls back to logging.
func newMailer(cfg config.MailConfig, logger *slog.Logger) (mail.Mailer, error) {
	if cfg.Host == "" {
		logger.Info("mail host not configured, emails will only be logged")
		return mail.NewLogMailer(logger), nil
	}
	m, err := mail.NewSMTPMailer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP mailer: %w", err)
	}
	return m, nil
}

func (app *application) newUploadStore() (upload.Store, error) {
	cfg := app.config.Upload
	switch cfg.Backend {
	case "s3":
		s, err := upload.NewS3Store(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 upload store: %w", err)
		}
		return s, nil
	case "disk":
		s, err := upload.NewDiskStore(cfg.Dir, cfg.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		app.uploadDir = s.Dir()
		return s, nil
	}
	return nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
}

// dependencies lists what the readiness probe checks.
func (app *application) dependencies() []api.Dependency {
	return []api.Dependency{
		{Name: "database", Ping: app.db.PingContext},
		{Name: "cache", Ping: app.cache.Ping},
		{Name: "uploads", Ping: app.uploads.Ping},
	}
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// release stops whatever newApplication started before it failed. The
// database belongs to the caller.
func (app *application) release() {
	if app.taskRunner != nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout())
		defer cancel()
		if err := app.taskRunner.Shutdown(ctx); err != nil {
			app.logger.Warn("failed to stop task runner", "error", err)
		}
	}
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Warn("failed to close cache", "error", err)
		}
	}
}

// cleanup drains background work and releases connections.
func (app *application) cleanup(ctx context.Context) error {
	close(app.stopSweeper)

	var errs []error
	if err := app.taskRunner.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := app.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	app.logger.Info("application shutdown completed")
	return errors.Join(errs...)
}
