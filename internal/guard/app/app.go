package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	guardhttp "github.com/aussiebroadwan/guard/internal/guard/http"
	"github.com/aussiebroadwan/guard/internal/guard/service"
	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/internal/guard/store/drivers/memory"
	redisdrv "github.com/aussiebroadwan/guard/internal/guard/store/drivers/redis"
	"github.com/aussiebroadwan/guard/internal/guard/store/drivers/sqlite"
	"github.com/aussiebroadwan/guard/pkg/csp"
	"github.com/aussiebroadwan/guard/pkg/ratelimit"
	"github.com/aussiebroadwan/guard/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the guard service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	store store.Store
	keys  TokenKeys

	// Services
	tokenService        *service.TokenService
	limiter             *ratelimit.Limiter
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *guardhttp.Router
}

// New validates cfg and creates an Application with all dependencies
// initialized.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "guard",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStore(context.Background()); err != nil {
		return nil, err
	}

	keys, err := InitTokenKeys(cfg, app.logger)
	if err != nil {
		_ = app.store.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keys = keys

	if err := app.initServices(); err != nil {
		_ = app.store.Close()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		_ = app.store.Close()
		return nil, err
	}

	return app, nil
}

// Handler exposes the HTTP handler, for tests and embedding.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("guard service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.Store,
		"algorithm", app.cfg.Algorithm,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.store.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops background work and closes the
// store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down guard service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.store.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("guard service stopped")
	return nil
}

// initStore opens the configured revocation and rate limit backend.
func (app *Application) initStore(ctx context.Context) error {
	switch app.cfg.Store {
	case StoreRedis:
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		s, err := redisdrv.NewStore(ctx, app.cfg.RedisURL, app.cfg.RedisPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.store = s

	case StoreSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		s, err := sqlite.NewStore(dsn)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := s.ApplyMigrations(); err != nil {
			_ = s.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.logger.Info("database migrations applied successfully")
		app.store = s

	default:
		app.store = memory.NewStore()
		app.logger.Warn("using in-memory store; revocations and rate limits are per process")
	}
	return nil
}

// initServices builds the token service, limiter and housekeeping worker.
func (app *Application) initServices() error {
	var auditor *slogx.Auditor
	if app.cfg.AuditKey != "" {
		auditor = slogx.NewAuditor([]byte(app.cfg.AuditKey))
	} else {
		auditor = slogx.NewAuditor(nil)
		app.logger.Warn("GUARD_AUDIT_KEY not set; audit entries are unsigned")
	}

	ts, err := service.NewTokenService(service.TokenServiceConfig{
		Access:              app.keys.Access,
		Refresh:             app.keys.Refresh,
		Revocations:         app.store.Revocations(),
		Auditor:             auditor,
		AccessTTL:           app.cfg.AccessTTL,
		RefreshTTL:          app.cfg.RefreshTTL,
		RotateRefreshTokens: app.cfg.RotateRefresh,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokenService = ts

	limiter, err := ratelimit.New(app.store.RateLimits(), ratelimit.Config{
		General: app.cfg.General,
		Trading: app.cfg.Trading,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	app.limiter = limiter

	app.housekeepingService = service.NewHousekeepingService(
		app.limiter,
		app.store.Revocations(),
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP builds the CSP template, the router and the server.
func (app *Application) initHTTP() error {
	policy, err := csp.New(csp.DefaultDirectives())
	if err != nil {
		return fmt.Errorf("failed to build content security policy: %w", err)
	}
	if app.cfg.CSPReportURI != "" {
		if err := policy.AddDirectiveSource("report-uri", app.cfg.CSPReportURI); err != nil {
			return fmt.Errorf("CSP_REPORT_URI: %w", err)
		}
	}

	if app.cfg.ServiceKeyHash == "" {
		app.logger.Warn("GUARD_SERVICE_KEY_SHA256 not set; token issuance and refresh are disabled")
	}

	router := guardhttp.NewRouter(guardhttp.RouterConfig{
		TokenService:     app.tokenService,
		Limiter:          app.limiter,
		Store:            app.store,
		CSP:              policy,
		ServiceKeySHA256: app.cfg.ServiceKeyHash,
		TrustProxy:       app.cfg.TrustProxy,
		ReportLimit:      app.cfg.ReportLimit,
		BuildVersion:     BuildVersion,
		Logger:           app.logger,
	})
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
