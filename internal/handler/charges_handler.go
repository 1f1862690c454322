package handler

import (
	"encoding/json"
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Charges
// ============================================================

func createChargeHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/organizations/{orgId}/charges")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")
		span.SetAttributes(attribute.String("organization.id", orgID))

		var req domain.ChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.CreateCharge(ctx, orgID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func getChargeHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/organizations/{orgId}/charges/{chargeId}")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")
		chargeID := chi.URLParam(r, "chargeId")
		if chargeID == "" {
			writeError(w, http.StatusBadRequest, "chargeId is required")
			return
		}

		result, err := svc.GetCharge(ctx, orgID, chargeID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func cancelChargeHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/organizations/{orgId}/charges/{chargeId}")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")
		chargeID := chi.URLParam(r, "chargeId")

		if err := svc.CancelCharge(ctx, orgID, chargeID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func refundChargeHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/organizations/{orgId}/charges/{chargeId}/refund")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")
		chargeID := chi.URLParam(r, "chargeId")

		// Body is optional; an empty or absent amount means a full refund.
		var req struct {
			AmountCents int64 `json:"amount_cents"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		result, err := svc.RefundCharge(ctx, orgID, chargeID, req.AmountCents)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
