package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chronoguess/adapters/jsonfile"
	"chronoguess/adapters/local"
	mem "chronoguess/adapters/memory"
	redisAdapter "chronoguess/adapters/redis"
	sqlxAdapter "chronoguess/adapters/sqlx"
	"chronoguess/analytics"
	"chronoguess/api/httpapi"
	"chronoguess/catalog"
	"chronoguess/config"
	"chronoguess/core"
	"chronoguess/engine"
	"chronoguess/guessr"
	"chronoguess/integrations/webhook"
	"chronoguess/leaderboard"
	"chronoguess/realtime"
)

// configFileEnv names an optional JSON config file.
const configFileEnv = config.EnvPrefix + "CONFIG_FILE"

// App aggregates the assembled server components.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Hub         *realtime.Hub
	Service     *engine.GameService
	Aggregation *analytics.AggregationEngine
	Handler     http.Handler
	Server      *http.Server
	Metrics     *MetricsServer
}

// MetricsServer serves Prometheus metrics on its own listener. Server is nil
// when metrics are disabled.
type MetricsServer struct {
	Server *http.Server
}

// Backends is the remote store selected by configuration plus what hangs off
// its connection.
type Backends struct {
	Remote engine.Storage
	Images catalog.Source
	Checks map[string]func(context.Context) error
}

func provideConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path := os.Getenv(configFileEnv); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, func(), error) {
	return setupStorage(ctx, cfg, logger)
}

func provideLocalStore(cfg *config.Config) (engine.LocalStore, error) {
	if cfg.Storage.LocalPath == "" {
		return local.New(nil), nil
	}
	kv, err := jsonfile.New(cfg.Storage.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return local.New(kv), nil
}

func provideGameMetrics() *analytics.GameMetrics {
	return analytics.NewGameMetrics()
}

func provideAggregation(cfg *config.Config, metrics *analytics.GameMetrics, logger *slog.Logger) *analytics.AggregationEngine {
	return analytics.NewAggregationEngine(metrics, cfg.Analytics.AggregationInterval, logger)
}

func providePromCollector(reg *prometheus.Registry) (*analytics.PromCollector, error) {
	return analytics.NewPromCollector(reg)
}

func provideLeaderboard() leaderboard.Board {
	return leaderboard.NewSkipList()
}

func provideService(
	cfg *config.Config,
	logger *slog.Logger,
	backends *Backends,
	localStore engine.LocalStore,
	hub *realtime.Hub,
	agg *analytics.AggregationEngine,
	prom *analytics.PromCollector,
	board leaderboard.Board,
) (*engine.GameService, func(), error) {
	settings, err := cfg.Game.Settings()
	if err != nil {
		return nil, nil, err
	}
	mode := engine.DispatchSync
	if cfg.Game.AsyncEvents {
		mode = engine.DispatchAsync
	}

	// the aggregation engine feeds its GameMetrics
	hooks := []engine.Hook{analytics.NewBridge(agg, prom), leaderboard.NewTracker(board)}
	if len(cfg.Webhooks.Endpoints) > 0 {
		events := make([]core.EventType, len(cfg.Webhooks.Events))
		for i, e := range cfg.Webhooks.Events {
			events[i] = core.EventType(e)
		}
		hooks = append(hooks, webhook.New(cfg.Webhooks.Endpoints,
			webhook.WithClient(&http.Client{Timeout: cfg.Webhooks.Timeout}),
			webhook.WithEvents(events...),
			webhook.WithLogger(logger),
		))
	}

	svc := guessr.New(
		guessr.WithRemote(backends.Remote),
		guessr.WithLocal(localStore),
		guessr.WithImageSource(backends.Images),
		guessr.WithDispatchMode(mode),
		guessr.WithRealtime(hub),
		guessr.WithHooks(hooks...),
		guessr.WithLogger(logger),
		guessr.WithServiceOptions(
			engine.WithDefaultSettings(settings),
			engine.WithStrict(cfg.Game.Strict),
			engine.WithSessionRetention(cfg.Game.SessionRetention, cfg.Game.IdleTimeout),
		),
	)
	return svc, svc.Close, nil
}

func provideHandler(cfg *config.Config, svc *engine.GameService, hub *realtime.Hub, backends *Backends, board leaderboard.Board, logger *slog.Logger) http.Handler {
	return httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		RateLimitCleanup: cfg.Security.RateLimit.CleanupInterval,
		Leaderboard:      board,
		HealthChecks:     backends.Checks,
		Logger:           logger,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func provideMetricsServer(cfg *config.Config, reg *prometheus.Registry) *MetricsServer {
	if !cfg.Metrics.Enabled {
		return &MetricsServer{}
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &MetricsServer{Server: &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// setupLogging configures the logger based on configuration. The returned
// cleanup closes a log file if one was opened.
func setupLogging(cfg *config.Config) (*slog.Logger, func(), error) {
	out, cleanup, err := logOutput(cfg.Logging.Output)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler).With("service", "chronoguess", "environment", string(cfg.Environment))
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func logOutput(output string) (io.Writer, func(), error) {
	switch output {
	case "", "stdout":
		return os.Stdout, func() {}, nil
	case "stderr":
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 - operator supplied
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage connects the configured remote store. Images come from the
// same backend when it has an images table or set.
func setupStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backends, func(), error) {
	noop := func() {}
	switch cfg.Storage.Adapter {
	case "memory":
		return &Backends{Remote: mem.New(), Images: catalog.NewMemory()}, noop, nil
	case "redis":
		store, err := redisAdapter.New(cfg.Storage.Redis)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}
		return &Backends{
			Remote: store,
			Images: redisAdapter.NewImageSource(store.Client()),
			Checks: map[string]func(context.Context) error{"redis": store.Ping},
		}, cleanup, nil
	case "sql":
		store, err := sqlxAdapter.New(cfg.Storage.SQL)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("close sql", "error", err)
			}
		}
		if cfg.Storage.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("sql schema migrated", "driver", cfg.Storage.SQL.Driver)
		}
		return &Backends{
			Remote: store,
			Images: sqlxAdapter.NewImageSource(store.DB()),
			Checks: map[string]func(context.Context) error{"sql": store.Ping},
		}, cleanup, nil
	case "file":
		kv, err := jsonfile.New(cfg.Storage.File.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		return &Backends{Remote: local.New(kv), Images: catalog.NewMemory()}, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
