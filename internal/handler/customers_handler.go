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
// Customers
// ============================================================

func createCustomerHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/organizations/{orgId}/customers")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")

		var params domain.CustomerParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.CreateCustomer(ctx, orgID, params)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func findCustomerHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/organizations/{orgId}/customers/lookup")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")
		document := r.URL.Query().Get("document")
		if document == "" {
			writeError(w, http.StatusBadRequest, "document query parameter is required")
			return
		}

		result, err := svc.FindCustomer(ctx, orgID, document)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
