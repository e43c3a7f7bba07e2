package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/EcommerceGo/pkg/clock"
	"github.com/utafrali/EcommerceGo/pkg/database"
	"github.com/utafrali/EcommerceGo/pkg/health"
	pkgkafka "github.com/utafrali/EcommerceGo/pkg/kafka"
	"github.com/utafrali/EcommerceGo/pkg/middleware"
	"github.com/utafrali/EcommerceGo/pkg/tracing"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/config"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/event"
	handler "github.com/utafrali/EcommerceGo/services/promotion/internal/handler/http"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/repository"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/repository/memory"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/repository/postgres"
	redisrepo "github.com/utafrali/EcommerceGo/services/promotion/internal/repository/redis"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/service"
	"github.com/utafrali/EcommerceGo/services/promotion/migrations"
)

// ServiceName identifies the promotion service in logs, traces and metrics.
const ServiceName = "promotion-service"

// App wires together all dependencies and runs the promotion service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *goredis.Client
	publisher  pkgkafka.Publisher
	tracerStop tracing.ShutdownFunc
	registry   *prometheus.Registry
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tracerStop, err := tracing.Init(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracerStop = tracerStop

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	healthHandler := health.NewHandler()

	repo, err := a.openStore(ctx, healthHandler)
	if err != nil {
		a.closeResources(ctx)
		return nil, err
	}

	a.publisher = a.newPublisher(healthHandler)

	// Build the dependency graph.
	clk := clock.NewRealClock()
	eventProducer := event.NewProducer(a.publisher, clk, logger)
	promotionService := service.NewPromotionService(repo, eventProducer, clk, logger)

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	routerCfg := handler.RouterConfig{
		ServiceName:    ServiceName,
		Version:        cfg.Version,
		BaseURL:        cfg.BaseURL,
		CORS:           cors,
		Metrics:        middleware.NewHTTPMetrics(a.registry),
		Gatherer:       a.registry,
		RequestTimeout: cfg.RequestTimeout,
	}
	if cfg.PprofEnabled {
		routerCfg.PprofCIDRs = cfg.PprofAllowedCIDRs
	}
	router := handler.NewRouter(promotionService, healthHandler, routerCfg, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// openStore connects the configured record store and registers its
// readiness check.
func (a *App) openStore(ctx context.Context, h *health.Handler) (repository.PromotionRepository, error) {
	switch a.cfg.Store {
	case config.StorePostgres:
		pgCfg := a.cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		a.logger.Info("connected to PostgreSQL",
			slog.String("host", pgCfg.Host),
			slog.Int("port", pgCfg.Port),
			slog.String("database", pgCfg.DBName),
		)

		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(a.registry, pool, ServiceName); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
		database.SetSlowQueryLogging(a.cfg.SlowQueryThreshold, a.logger)

		h.RegisterCritical("postgres", pool.Ping)
		return postgres.NewPromotionRepository(pool), nil

	case config.StoreRedis:
		redisCfg := a.cfg.Redis()
		client, err := database.NewRedisClient(ctx, redisCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		a.logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()), slog.Int("db", redisCfg.DB))

		repo := redisrepo.NewPromotionRepository(client)
		h.RegisterCritical("redis", repo.Ping)
		return repo, nil

	case config.StoreMemory:
		a.logger.Warn("using in-memory promotion store; records are lost on restart")
		return memory.NewPromotionRepository(), nil

	default:
		return nil, fmt.Errorf("unsupported store %q", a.cfg.Store)
	}
}

// newPublisher returns the Kafka producer behind a circuit breaker, or a
// no-op publisher when Kafka is disabled.
func (a *App) newPublisher(h *health.Handler) pkgkafka.Publisher {
	if !a.cfg.KafkaEnabled {
		a.logger.Info("kafka disabled; domain events are not published")
		return pkgkafka.NopPublisher{}
	}

	metrics := pkgkafka.NewMetrics(a.registry)
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger, metrics)
	a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))

	// Publishing is best effort, so a broker outage degrades readiness
	// without failing it.
	h.RegisterNonCritical("kafka", producer.Ping)

	return pkgkafka.NewBreakerPublisher(producer, pkgkafka.DefaultBreakerConfig("promotion-kafka"), a.logger, metrics)
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		a.Shutdown()
		return fmt.Errorf("listen on %s: %w", a.httpServer.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", ln.Addr().String()))
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.Shutdown()
		return err
	}

	a.Shutdown()
	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() {
	a.logger.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.closeResources(ctx)
	a.logger.Info("application shutdown complete")
}

func (a *App) closeResources(ctx context.Context) {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerStop != nil {
		if err := a.tracerStop(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
