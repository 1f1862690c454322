package handler

import (
	"io"
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Provider payloads are small; anything bigger than this is not a
// legitimate notification.
const maxWebhookBody = 1 << 20

// webhookHandler receives provider deliveries on a flat callback URL.
// The organization comes from the ?org= query parameter, set when the
// webhook endpoint is registered with the provider.
func webhookHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/webhooks/{provider}")
		defer span.End()

		providerID := chi.URLParam(r, "provider")
		orgID := r.URL.Query().Get("org")
		span.SetAttributes(
			attribute.String("provider", providerID),
			attribute.String("organization.id", orgID),
		)

		if orgID == "" {
			writeError(w, http.StatusBadRequest, "org query parameter is required")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read request body")
			return
		}

		event, err := svc.HandleWebhook(ctx, orgID, providerID, r.Header, body)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"received":   true,
			"event_id":   event.ID,
			"event_type": event.EventType,
		})
	}
}
