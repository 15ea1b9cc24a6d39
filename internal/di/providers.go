package di

import (
	"fmt"

	"ChartDeck/internal/chart"
	"ChartDeck/internal/domain/repository"
	"ChartDeck/internal/handler/api"
	internalrepo "ChartDeck/internal/repository"
	"ChartDeck/internal/service/ratelimit"
	"ChartDeck/internal/surface"
	"ChartDeck/internal/usecase"
	"ChartDeck/pkg/cache"
	"ChartDeck/pkg/config"
	xhttp "ChartDeck/pkg/http"
	"ChartDeck/pkg/http/middleware"
	pkgkafka "ChartDeck/pkg/kafka"
	"ChartDeck/pkg/logger"
	"ChartDeck/pkg/metrics"
	"ChartDeck/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Noop{}
	}
	return metrics.New()
}

// ProvidePreferenceCache opens the key-value backend for overlay preferences.
func ProvidePreferenceCache(cfg *config.Config, l *logger.Logger) (cache.BytesCache, func(), error) {
	p := cfg.Preferences
	kv, err := openPreferenceBackend(cfg, p.Backend)
	if err != nil {
		return nil, nil, fmt.Errorf("preferences %s backend: %w", p.Backend, err)
	}
	l.Info("preferences backend ready", logger.String("backend", p.Backend))

	cleanup := func() {
		if err := kv.Close(); err != nil {
			l.Warn("preferences backend close", logger.Error(err))
		}
	}
	return kv, cleanup, nil
}

func openPreferenceBackend(cfg *config.Config, backend string) (cache.BytesCache, error) {
	p := cfg.Preferences
	switch backend {
	case "redis":
		return cache.NewRedisCache(
			cache.WithRedisHost(p.Redis.Host),
			cache.WithRedisPort(p.Redis.Port),
			cache.WithRedisPassword(p.Redis.Password),
			cache.WithRedisDB(p.Redis.DB),
			cache.WithRedisPrefix(p.Redis.Prefix),
		)
	case "sqlite":
		return cache.NewSQLiteCache(
			cache.WithSQLitePath(p.SQLite.Path),
			cache.WithSQLiteBusyTimeout(p.SQLite.BusyTimeout),
		)
	case "layered":
		l2, err := openPreferenceBackend(cfg, p.Layered.L2)
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(l2,
			cache.WithLayeredMemoryMaxSize(p.Layered.MemoryMaxSize),
			cache.WithLayeredL1TTL(p.Layered.L1TTL),
		), nil
	default:
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(p.Memory.MaxSize),
			cache.WithMemoryCleanup(p.Memory.CleanupInterval),
		), nil
	}
}

// ProvidePreferenceStore creates the overlay preference repository.
func ProvidePreferenceStore(kv cache.BytesCache, l *logger.Logger) *internalrepo.PreferenceStore {
	return internalrepo.NewPreferenceStore(kv, l.With(logger.String("component", "preferences")))
}

// ProvideSurfaceFactory creates the retained surface allocator.
func ProvideSurfaceFactory(cfg *config.Config) *surface.Factory {
	return surface.NewFactory(surface.WithMaxSeries(cfg.Chart.MaxSeriesPerSurface))
}

// ProvideHub creates the websocket bridge. Browser origins follow the CORS list.
func ProvideHub(cfg *config.Config, l *logger.Logger) *surface.Hub {
	origins := cfg.Server.AllowOrigins
	return surface.NewHub(l.With(logger.String("component", "ws")),
		surface.WithOriginCheck(func(origin string) bool {
			return middleware.OriginAllowed(origins, origin)
		}),
	)
}

// ProvideChartSessions creates the chart session registry.
func ProvideChartSessions(
	cfg *config.Config,
	factory *surface.Factory,
	store *internalrepo.PreferenceStore,
	m repository.Metrics,
	l *logger.Logger,
) (*usecase.ChartSessions, error) {
	policy, err := chart.ParseGapPolicy(cfg.Chart.GapPolicy)
	if err != nil {
		return nil, fmt.Errorf("chart gap policy: %w", err)
	}
	log := l.With(logger.String("component", "charts"))
	return usecase.NewChartSessions(factory, store,
		usecase.WithSessionsLogger(log),
		usecase.WithSessionsMetrics(m),
		usecase.WithGapPolicy(policy),
		usecase.WithIndicatorBackfill(cfg.Chart.ComputeMissingIndicators),
		usecase.WithTimeframeListener(func(symbol string, iv repository.Interval) {
			log.Info("awaiting payload for new timeframe", logger.String("symbol", symbol), logger.String("interval", string(iv)))
		}),
	), nil
}

// ProvideSweeper creates the idle session sweeper.
func ProvideSweeper(cfg *config.Config, sessions *usecase.ChartSessions, l *logger.Logger) *usecase.Sweeper {
	return usecase.NewSweeper(sessions, cfg.Sessions.SweepSpec, cfg.Sessions.IdleTTL, l.With(logger.String("component", "sweeper")))
}

// ProvidePayloadHandler registers the analysis payload handler for the configured topic.
func ProvidePayloadHandler(cfg *config.Config, sessions *usecase.ChartSessions, m repository.Metrics, l *logger.Logger) *usecase.PayloadHandler {
	return usecase.NewPayloadHandler(cfg.Kafka.Topic, sessions, l.With(logger.String("component", "payloads")), m)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
// It returns nil when ingestion is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	log := l.With(logger.String("component", "kafka"))
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.AutoOffsetReset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.NewTraceHook(log)))
	return consumer, nil
}

// ProvidePreferencesHandler creates the preferences HTTP handler.
func ProvidePreferencesHandler(store *internalrepo.PreferenceStore, l *logger.Logger) *api.PreferencesEchoHandler {
	return api.NewPreferencesEchoHandler(l, store)
}

// ProvidePointerLimiter throttles websocket pointer moves. A zero rate disables it.
func ProvidePointerLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.Chart.PointerRate <= 0 {
		return nil
	}
	return ratelimit.New(float64(cfg.Chart.PointerBurst), cfg.Chart.PointerRate)
}

// ProvideChartsHandler creates the charts HTTP handler.
func ProvideChartsHandler(
	sessions *usecase.ChartSessions,
	hub *surface.Hub,
	prefs *api.PreferencesEchoHandler,
	pointers *ratelimit.Limiter,
	l *logger.Logger,
) *api.ChartsEchoHandler {
	return api.NewChartsEchoHandler(l.With(logger.String("component", "http")), sessions, hub, prefs, pointers)
}

// ProvideHTTPServer creates the Echo server with the chart routes.
func ProvideHTTPServer(cfg *config.Config, h *api.ChartsEchoHandler, l *logger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.AllowOrigins),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.SlowThreshold),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	sessions *usecase.ChartSessions,
	sweeper *usecase.Sweeper,
	hub *surface.Hub,
	consumer *pkgkafka.Consumer,
	ph *usecase.PayloadHandler,
) *server.App {
	return server.New(cfg, l, httpServer, sessions, sweeper, hub, consumer, ph)
}
