// Package runtime wires configuration, storage, services and the HTTP server
// into a runnable process.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	app "github.com/mealdesk/mealdesk/internal/app"
	"github.com/mealdesk/mealdesk/internal/app/domain/setting"
	"github.com/mealdesk/mealdesk/internal/app/httpapi"
	"github.com/mealdesk/mealdesk/internal/app/services/settings"
	"github.com/mealdesk/mealdesk/internal/app/storage/postgres"
	"github.com/mealdesk/mealdesk/internal/config"
	"github.com/mealdesk/mealdesk/internal/middleware"
	"github.com/mealdesk/mealdesk/internal/platform/migrations"
	"github.com/mealdesk/mealdesk/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sql.DB
}

// NewApplication constructs a fully wired application from the configuration
// file at configPath.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	stores, db, err := buildStores(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	application, err := app.New(stores, app.Options{
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		TokenTTL:  cfg.Auth.TokenTTL,
	}, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	if err := bootstrap(context.Background(), application, cfg, log); err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	handler := httpapi.NewHandler(application, log)
	cors := middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      cors.Handler(limiter.Handler(handler)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		app:        application,
		httpServer: httpSrv,
		db:         db,
	}, nil
}

// Run starts the services and the HTTP server and blocks until the context is
// cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.cfg.Server.Addr())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, the services and the database.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

// buildStores selects postgres when a DSN is configured, otherwise the
// in-memory store. The returned db is nil in the in-memory case.
func buildStores(cfg config.Config) (app.Stores, *sql.DB, error) {
	if cfg.Database.DSN == "" {
		return app.Stores{}, nil, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return app.Stores{}, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := postgres.New(db)
	return app.Stores{
		Users:    store,
		Canteens: store,
		Meals:    store,
		Orders:   store,
		Settings: store,
	}, db, nil
}

// bootstrap seeds the administrator account and the default cutoff setting so
// a fresh deployment is usable immediately.
func bootstrap(ctx context.Context, application *app.Application, cfg config.Config, log *logger.Logger) error {
	if cfg.Auth.AdminPassword != "" {
		if err := application.Identity.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	} else {
		log.Warn("admin_password not set; skipping admin bootstrap")
	}

	if _, err := application.Settings.GetString(ctx, setting.KeyOrderCutoffTime); err != nil {
		if _, err := application.Settings.Put(ctx, setting.KeyOrderCutoffTime, settings.DefaultCutoff.String()); err != nil {
			return fmt.Errorf("seed cutoff setting: %w", err)
		}
	}
	return nil
}
