package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantProvider string
	}{
		{
			name:       "validation",
			err:        &domain.ErrValidation{Field: "amount_cents", Message: "must be positive"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found",
			err:        &domain.ErrNotFound{Resource: "charge", ID: "ch_1"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "circuit open",
			err:        &domain.ErrCircuitOpen{Service: "supabase"},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:         "unsupported operation",
			err:          domain.NewUnsupportedError(domain.ProviderInter, "refund", "bank charges are settled via PIX devolution"),
			wantStatus:   http.StatusUnprocessableEntity,
			wantProvider: "inter",
		},
		{
			name:         "factory error",
			err:          domain.NewFactoryError(`unknown provider "stripe"`),
			wantStatus:   http.StatusBadRequest,
			wantProvider: "factory",
		},
		{
			name:         "provider failure",
			err:          domain.NewHTTPError(domain.ProviderAsaas, "provider request failed", http.StatusInternalServerError, `{"errors":[]}`),
			wantStatus:   http.StatusBadGateway,
			wantProvider: "asaas",
		},
		{
			name:       "external service",
			err:        &domain.ErrExternalService{Service: "supabase", Err: errors.New("timeout")},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tt.err, zap.NewNop())

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}

			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error == "" {
				t.Error("empty error message")
			}
			if body.Provider != tt.wantProvider {
				t.Errorf("provider = %q, want %q", body.Provider, tt.wantProvider)
			}
		})
	}
}

func TestHandleServiceError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, errors.New("pq: connection refused on 10.0.0.3"), zap.NewNop())

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "internal server error" {
		t.Errorf("error = %q, want the generic message", body.Error)
	}
}
