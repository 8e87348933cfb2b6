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

	"github.com/quickbite/platform/internal/auth/cache"
	"github.com/quickbite/platform/internal/auth/domain"
	httpapi "github.com/quickbite/platform/internal/auth/http"
	"github.com/quickbite/platform/internal/auth/service"
	"github.com/quickbite/platform/internal/auth/store"
	"github.com/quickbite/platform/internal/auth/store/drivers/sqlite"
	"github.com/quickbite/platform/internal/metrics"
	"github.com/quickbite/platform/pkg/cryptox"
	"github.com/quickbite/platform/pkg/idx"
	"github.com/quickbite/platform/pkg/jwtx"
	"github.com/quickbite/platform/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	codec    *jwtx.Codec
	denylist cache.Denylist
	tokens   cache.TokenCache
	metrics  *metrics.Metrics

	// Services
	tokenService        *service.TokenService
	userService         *service.UserService
	rolesService        *service.RolesService
	blacklistService    *service.BlacklistService
	validator           *service.Validator
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	codec, err := jwtx.NewCodec(cfg.JWTSecret, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initCaches(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if err := app.ensureAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCaches selects Redis when an address is configured, otherwise the
// in-memory implementations. Memory instances register as housekeeping
// sweepers later; Redis expires keys on its own.
func (app *Application) initCaches() error {
	if app.cfg.RedisAddr == "" {
		mem := cache.NewMemory()
		app.denylist = mem
		app.tokens = mem
		app.logger.Info("using in-memory denylist and token cache")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := cache.NewRedisClient(ctx, app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	app.denylist = cache.NewRedis(rdb, "auth:deny")
	app.tokens = cache.NewRedis(rdb, "auth:refresh")
	app.logger.Info("using redis denylist and token cache", "addr", app.cfg.RedisAddr)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.blacklistService = &service.BlacklistService{
		List:   app.denylist,
		MaxTTL: app.cfg.BlacklistMaxTTL,
	}

	app.validator = &service.Validator{
		Codec:     app.codec,
		Blacklist: app.blacklistService,
		Metrics:   app.metrics,
	}

	app.tokenService = &service.TokenService{
		Codec:      app.codec,
		Store:      app.db,
		Cache:      app.tokens,
		Blacklist:  app.blacklistService,
		Metrics:    app.metrics,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}

	app.userService = &service.UserService{Store: app.db, Cache: app.tokens}
	app.rolesService = &service.RolesService{Store: app.db}

	var sweepers []service.Sweeper
	if mem, ok := app.denylist.(*cache.Memory); ok {
		sweepers = append(sweepers, mem)
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		sweepers...,
	)
}

// ensureAdmin seeds the configured admin account on first boot so role
// administration is reachable without editing the database by hand. When no
// password is configured one is generated and logged exactly once.
func (app *Application) ensureAdmin(ctx context.Context) error {
	if app.cfg.AdminEmail == "" {
		empty, err := app.db.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if empty {
			app.logger.Warn("no users and no AUTH_ADMIN_EMAIL configured; role administration is unreachable")
		}
		return nil
	}

	_, err := app.db.Users().GetUserByEmail(ctx, app.cfg.AdminEmail)
	if err == nil {
		return nil // already seeded
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	password := app.cfg.AdminPassword
	generated := false
	if password == "" {
		password, err = cryptox.GeneratePassword()
		if err != nil {
			return err
		}
		generated = true
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := domain.User{
		ID:           idx.New().String(),
		Email:        app.cfg.AdminEmail,
		FullName:     "Administrator",
		PasswordHash: hash,
		Roles:        []string{domain.RoleUser, domain.RoleAdmin},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = app.db.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, admin)
	})
	if err != nil {
		return err
	}

	if generated {
		// Shown once at first boot; rotate it via the change-password flow.
		app.logger.Warn("generated admin password", "email", admin.Email, "password", password)
	} else {
		app.logger.Info("admin account seeded", "email", admin.Email)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.validator,
		BuildVersion,
		app.db,
		app.metrics,
		app.logger,
	)

	// Wire services to router
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.RolesService = app.rolesService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
