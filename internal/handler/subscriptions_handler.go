package handler

import (
	"encoding/json"
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Subscriptions
// ============================================================

func createSubscriptionHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/organizations/{orgId}/subscriptions")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")

		var req domain.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.CreateSubscription(ctx, orgID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func getSubscriptionHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/organizations/{orgId}/subscriptions/{subscriptionId}")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")
		subscriptionID := chi.URLParam(r, "subscriptionId")

		result, err := svc.GetSubscription(ctx, orgID, subscriptionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func cancelSubscriptionHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/organizations/{orgId}/subscriptions/{subscriptionId}")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")
		subscriptionID := chi.URLParam(r, "subscriptionId")

		if err := svc.CancelSubscription(ctx, orgID, subscriptionID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
