// Package bootstrap wires configuration, adapters and services into a
// runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gabrielgadea/kazuba-saas-api/adapters/clock"
	"github.com/gabrielgadea/kazuba-saas-api/adapters/convert"
	httpadapter "github.com/gabrielgadea/kazuba-saas-api/adapters/http"
	"github.com/gabrielgadea/kazuba-saas-api/adapters/metrics"
	redisadapter "github.com/gabrielgadea/kazuba-saas-api/adapters/redis"
	"github.com/gabrielgadea/kazuba-saas-api/app"
	"github.com/gabrielgadea/kazuba-saas-api/config"
)

// App is the assembled application.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	HTTPServer *http.Server

	gateway *app.GatewayService
	usage   *app.UsageService
	redis   *goredis.Client
	holder  *config.Holder
	metrics *metrics.Collector
}

// New assembles the application from a loaded configuration.
func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if err := a.init(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewWithHotReload assembles the application from a config file and keeps
// watching it: file writes and SIGHUP both reapply the reloadable fields.
func NewWithHotReload(path string) (*App, error) {
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "json"})

	holder, err := config.NewHolder(path, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Config: holder.Get(), holder: holder}
	if err := a.init(); err != nil {
		return nil, err
	}

	holder.OnChange(a.applyConfig)

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable, SIGHUP reload still works")
	}
	holder.WatchSignals()

	return a, nil
}

func (a *App) init() error {
	cfg := a.Config

	a.Logger = setupLogger(cfg.Logging)

	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(prometheus.DefaultRegisterer)
	}

	opts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	a.redis = goredis.NewClient(opts)

	counters := redisadapter.NewCounterStore(a.redis, cfg.Redis.Timeout)

	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("build tier policy: %w", err)
	}

	a.gateway = app.NewGatewayService(app.GatewayDeps{
		Counters: counters,
		Clock:    clock.Real{},
		Logger:   a.Logger,
		Metrics:  a.metrics,
	}, app.DynamicConfig{
		Policy:   policy,
		Fallback: app.FallbackPolicy(cfg.Quota.Fallback),
	})

	a.usage = app.NewUsageService(counters, clock.Real{}, policy)

	handler := httpadapter.NewGatewayHandler(httpadapter.GatewayHandlerConfig{
		Gateway:        a.gateway,
		Usage:          a.usage,
		Converter:      convert.NewExtractor(),
		Logger:         a.Logger,
		Metrics:        a.metrics,
		MaxUploadBytes: cfg.Convert.MaxUploadBytes,
	})

	router := httpadapter.NewRouter(
		handler,
		httpadapter.NewHealthHandler(counters),
		a.Logger,
		httpadapter.RouterConfig{Metrics: a.metrics, MetricsPath: cfg.Metrics.Path},
	)

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return nil
}

// applyConfig pushes the reloadable part of a fresh config into the
// running services. Server address, Redis connection and metrics wiring
// need a restart.
func (a *App) applyConfig(cfg *config.Config) {
	policy, err := cfg.Policy()
	if err != nil {
		if a.metrics != nil {
			a.metrics.ConfigReloadErrors.Inc()
		}
		a.Logger.Error().Err(err).Msg("reloaded config has invalid tier policy, keeping old")
		return
	}

	a.gateway.UpdateConfig(app.DynamicConfig{
		Policy:   policy,
		Fallback: app.FallbackPolicy(cfg.Quota.Fallback),
	})
	a.usage.UpdatePolicy(policy)
	a.Config = cfg

	if a.metrics != nil {
		a.metrics.ConfigReloads.Inc()
	}
	a.Logger.Info().
		Str("fallback", cfg.Quota.Fallback).
		Msg("applied reloaded configuration")
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM.
func (a *App) Run() error {
	errCh := make(chan error, 1)

	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Str("fallback", a.Config.Quota.Fallback).
			Msg("server starting")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	if err := a.redis.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("redis close failed")
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Str("service", "kazuba").Logger()
}
