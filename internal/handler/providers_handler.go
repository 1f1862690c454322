package handler

import (
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Provider catalog, capabilities and gateway metrics
// ============================================================

func providersHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/providers")
		defer span.End()

		writeJSON(w, http.StatusOK, map[string]any{"providers": svc.Providers()})
	}
}

func capabilitiesHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/organizations/{orgId}/capabilities")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")

		caps, provider, err := svc.Capabilities(ctx, orgID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"provider":     provider,
			"capabilities": caps,
		})
	}
}

func gatewayMetricsHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/gateway")
		defer span.End()

		writeJSON(w, http.StatusOK, svc.MetricsSnapshot())
	}
}
