package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Recipients, balance, statement and transfers
// ============================================================

func createRecipientHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/organizations/{orgId}/recipients")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")

		var params domain.RecipientParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if params.Name == "" || params.Document == "" {
			writeError(w, http.StatusBadRequest, "name and document are required")
			return
		}

		result, err := svc.CreateRecipient(ctx, orgID, params)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func getBalanceHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/organizations/{orgId}/balance")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")

		result, err := svc.GetBalance(ctx, orgID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func getStatementHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/organizations/{orgId}/statement")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")

		// Defaults to the trailing 30 days when the range is absent.
		endDate := time.Now()
		startDate := endDate.AddDate(0, 0, -30)
		if v := r.URL.Query().Get("start_date"); v != "" {
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
				return
			}
			startDate = d
		}
		if v := r.URL.Query().Get("end_date"); v != "" {
			d, err := time.Parse("2006-01-02", v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
				return
			}
			endDate = d
		}
		if endDate.Before(startDate) {
			writeError(w, http.StatusBadRequest, "end_date must not precede start_date")
			return
		}

		entries, err := svc.GetStatement(ctx, orgID, startDate, endDate)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if entries == nil {
			entries = []domain.StatementEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
	}
}

func createTransferHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/organizations/{orgId}/transfers")
		defer span.End()

		orgID := chi.URLParam(r, "orgId")

		var req domain.TransferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PixKey == "" && req.AccountNumber == "" {
			writeError(w, http.StatusBadRequest, "either pix_key or a bank account destination is required")
			return
		}

		result, err := svc.CreateTransfer(ctx, orgID, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}
