package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error    string `json:"error"`
	Provider string `json:"provider,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses. Provider errors
// surface as 502 with the provider identifier so the caller can tell a
// gateway failure from a local one.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	var adapterErr *domain.AdapterError

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &adapterErr):
		status := adapterStatus(adapterErr)
		logger.Warn("adapter error",
			zap.String("provider", adapterErr.Provider),
			zap.Int("status", status),
			zap.String("error", adapterErr.Message),
		)
		writeJSON(w, status, errorResponse{Error: err.Error(), Provider: adapterErr.Provider})
	case errors.As(err, &external):
		logger.Error("external service error", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// adapterStatus picks the HTTP status for an adapter-layer error.
// Unsupported operations are a caller problem (the capability matrix said
// no); factory errors mean the organization's gateway setup is wrong;
// everything else is the provider failing upstream.
func adapterStatus(err *domain.AdapterError) int {
	switch {
	case err.Unsupported:
		return http.StatusUnprocessableEntity
	case err.Provider == "factory":
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
