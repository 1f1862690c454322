package handler

import (
	"net/http"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/infra/observability"
	"github.com/escolahub/payments-gateway-go/internal/port"
	"github.com/escolahub/payments-gateway-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// All provider operations are organization-scoped; webhook deliveries carry
// the organization in a query parameter because providers only let us
// configure a flat callback URL.
func NewRouter(svc *service.PaymentService, store port.GatewayStore, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Provider catalog and gateway metrics
		r.Get("/providers", providersHandler(svc, logger))
		r.Get("/metrics/gateway", gatewayMetricsHandler(svc, logger))

		// Webhook deliveries from the providers
		r.Post("/webhooks/{provider}", webhookHandler(svc, logger))

		// Organization-scoped operations
		r.Route("/organizations/{orgId}", func(r chi.Router) {
			r.Get("/capabilities", capabilitiesHandler(svc, logger))

			r.Post("/charges", createChargeHandler(svc, logger))
			r.Get("/charges/{chargeId}", getChargeHandler(svc, logger))
			r.Delete("/charges/{chargeId}", cancelChargeHandler(svc, logger))
			r.Post("/charges/{chargeId}/refund", refundChargeHandler(svc, logger))

			r.Post("/customers", createCustomerHandler(svc, logger))
			r.Get("/customers/lookup", findCustomerHandler(svc, logger))

			r.Post("/subscriptions", createSubscriptionHandler(svc, logger))
			r.Get("/subscriptions/{subscriptionId}", getSubscriptionHandler(svc, logger))
			r.Delete("/subscriptions/{subscriptionId}", cancelSubscriptionHandler(svc, logger))

			r.Post("/recipients", createRecipientHandler(svc, logger))

			r.Get("/balance", getBalanceHandler(svc, logger))
			r.Get("/statement", getStatementHandler(svc, logger))
			r.Post("/transfers", createTransferHandler(svc, logger))
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func healthzHandler(store port.GatewayStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status := "healthy"
		var latencyMs int64
		if store != nil {
			start := time.Now()
			if _, err := store.ListGateways(ctx, "health-check"); err != nil {
				status = "degraded"
				logger.Warn("healthz: store check failed", zap.Error(err))
			}
			latencyMs = time.Since(start).Milliseconds()
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status": status,
			"services": []map[string]any{
				{"name": "gateway-api", "status": "healthy"},
				{"name": "supabase", "status": status, "latency_ms": latencyMs},
			},
			"checked_at": time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
