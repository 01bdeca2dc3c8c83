package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlwanWZ/shophub/internal/session"
	"github.com/AlwanWZ/shophub/pkg/health"
	"github.com/AlwanWZ/shophub/pkg/middleware"
)

const serviceName = "shophub"

// RouterConfig holds the dependencies of the HTTP router.
type RouterConfig struct {
	Sessions     *session.Manager
	Students     StudentSource
	Health       *health.Handler
	ProxyLimiter *middleware.RateLimiter
	CORS         middleware.CORSConfig
	Logger       *slog.Logger
}

// NewRouter creates a chi router with all shophub routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	studentHandler := NewStudentHandler(cfg.Students, logger)
	proxy := http.HandlerFunc(studentHandler.Proxy)
	if cfg.ProxyLimiter != nil {
		r.Get("/api/proxy", cfg.ProxyLimiter.Middleware(proxy).ServeHTTP)
	} else {
		r.Get("/api/proxy", proxy)
	}

	sessionHandler := NewSessionHandler(cfg.Sessions, logger)
	productHandler := NewProductHandler(cfg.Sessions, logger)
	cartHandler := NewCartHandler(cfg.Sessions, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/sessions", sessionHandler.StartSession)
		r.Get("/students", studentHandler.ListStudents)

		r.Group(func(r chi.Router) {
			r.Use(RequireSession)

			r.Delete("/sessions", sessionHandler.EndSession)
			r.Get("/products", productHandler.ListProducts)

			r.Get("/cart", cartHandler.GetCart)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{productId}", cartHandler.SetQuantity)
			r.Delete("/cart/items/{productId}", cartHandler.RemoveItem)
			r.Get("/cart/items/{productId}/available", cartHandler.Available)
		})
	})

	return r
}
