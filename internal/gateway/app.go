package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickbite/platform/internal/auth/cache"
	"github.com/quickbite/platform/internal/auth/service"
	"github.com/quickbite/platform/internal/metrics"
	"github.com/quickbite/platform/pkg/httpx"
	"github.com/quickbite/platform/pkg/jwtx"
	"github.com/quickbite/platform/pkg/slogx"
)

const BuildVersion = "v0.1.0"

// Application is the edge gateway: trust filter in front of a reverse proxy.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	server    *http.Server
	startTime time.Time
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics:   metrics.New(),
		startTime: time.Now(),
	}

	codec, err := jwtx.NewCodec(cfg.JWTSecret, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	denylist, err := app.initDenylist()
	if err != nil {
		return nil, err
	}

	verifier := &service.Validator{
		Codec:     codec,
		Blacklist: service.NewBlacklistService(denylist),
		Metrics:   app.metrics,
	}

	proxy, err := NewProxy(map[string]string{
		"/api/auth":        cfg.UserServiceURL,
		"/api/users":       cfg.UserServiceURL,
		"/api/orders":      cfg.OrderServiceURL,
		"/api/cart":        cfg.OrderServiceURL,
		"/api/restaurants": cfg.RestaurantServiceURL,
		"/api/menu":        cfg.RestaurantServiceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build proxy routes: %w", err)
	}

	filter := &TrustFilter{
		Verifier: verifier,
		Policy:   DefaultOpenPolicy(),
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", httpx.Chain(proxy,
		slogx.HTTPMiddleware(app.logger),
		filter.Middleware,
	))
	mux.HandleFunc("GET /livez", app.handleLivez)
	mux.Handle("GET /metrics", app.metrics.Handler())

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return app, nil
}

// initDenylist connects to the denylist shared with the auth service. Without
// Redis the gateway still verifies signatures and expiry; blacklist checks
// then only catch tokens revoked through this process.
func (app *Application) initDenylist() (cache.Denylist, error) {
	if app.cfg.RedisAddr == "" {
		app.logger.Warn("no redis configured; blacklist is process-local")
		return cache.NewMemory(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := cache.NewRedisClient(ctx, app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return cache.NewRedis(rdb, "auth:deny"), nil
}

func (app *Application) handleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"uptime":  time.Since(app.startTime).String(),
		"version": BuildVersion,
	})
}

// Run starts the gateway and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("gateway starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		return app.server.Close()
	}

	app.logger.Info("gateway stopped")
	return nil
}
