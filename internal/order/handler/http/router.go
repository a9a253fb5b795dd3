package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopmicro/shopmicro/internal/order/service"
	"github.com/shopmicro/shopmicro/pkg/health"
	"github.com/shopmicro/shopmicro/pkg/httpclient"
	"github.com/shopmicro/shopmicro/pkg/httputil"
	"github.com/shopmicro/shopmicro/pkg/middleware"
)

// NewRouter creates a chi router with all order service routes registered.
func NewRouter(
	orderService *service.OrderService,
	healthHandler *health.Handler,
	breakers *httpclient.Registry,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("order"))
	r.Use(middleware.PrometheusMetrics("order"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/health/breakers", BreakerStatusHandler(breakers))
	r.Handle("/metrics", promhttp.Handler())

	// Order API endpoints
	orderHandler := NewOrderHandler(orderService, logger)

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", orderHandler.CreateOrder)
		r.Get("/", orderHandler.ListOrders)
		r.Get("/{id}", orderHandler.GetOrder)
		r.Get("/{id}/items", orderHandler.GetOrderItems)
		r.Patch("/{id}/status", orderHandler.UpdateOrderStatus)
		r.Delete("/{id}", orderHandler.DeleteOrder)
	})

	return r
}

// BreakerStatusHandler reports the current state of every registered circuit
// breaker, keyed by dependency name.
func BreakerStatusHandler(breakers *httpclient.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: breakers.States()})
	}
}
