package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/EcommerceGo/pkg/health"
	"github.com/utafrali/EcommerceGo/pkg/middleware"
	"github.com/utafrali/EcommerceGo/services/promotion/internal/service"
)

// RouterConfig carries the dependencies and settings of the HTTP layer.
type RouterConfig struct {
	ServiceName string
	Version     string
	BaseURL     string

	CORS middleware.CORSConfig

	// Metrics and Gatherer are optional; without them no request metrics
	// are recorded and /metrics serves the default registry.
	Metrics  *middleware.HTTPMetrics
	Gatherer prometheus.Gatherer

	// PprofCIDRs enables /debug/pprof for the listed networks when non-empty.
	PprofCIDRs []string

	RequestTimeout time.Duration
}

// NewRouter creates a chi router with all promotion service routes registered.
func NewRouter(
	promotionService *service.PromotionService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger, "/health", "/metrics"))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware(cfg.ServiceName))
	}

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	// Health check endpoints
	r.Get("/health", Health)
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", metricsHandler(cfg.Gatherer))

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	r.Get("/", Index(cfg.ServiceName, cfg.Version))

	// Promotion API endpoints
	promotionHandler := NewPromotionHandler(promotionService, cfg.BaseURL, logger)

	r.Route("/promotions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", promotionHandler.CreatePromotion)
		r.Get("/", promotionHandler.ListPromotions)

		r.Put("/change_end_date/{id:[0-9]+}", promotionHandler.ChangeEndDate)
		r.Get("/cancel/{id:[0-9]+}", promotionHandler.CancelPromotion)

		r.Get("/{id:[0-9]+}", promotionHandler.GetPromotion)
		r.Put("/{id:[0-9]+}", promotionHandler.UpdatePromotion)
		r.Delete("/{id:[0-9]+}", promotionHandler.DeletePromotion)
	})

	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
