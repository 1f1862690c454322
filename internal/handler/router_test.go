package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/adapter"
	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/handler"
	"github.com/escolahub/payments-gateway-go/internal/infra/cache"
	"github.com/escolahub/payments-gateway-go/internal/infra/crypto"
	"github.com/escolahub/payments-gateway-go/internal/infra/observability"
	"github.com/escolahub/payments-gateway-go/internal/service"

	"go.uber.org/zap"
)

type fakeStore struct {
	records map[string]*domain.GatewayRecord
}

func (f *fakeStore) FindActiveGateway(ctx context.Context, orgID string) (*domain.GatewayRecord, error) {
	rec, ok := f.records[orgID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "gateway", ID: orgID}
	}
	return rec, nil
}

func (f *fakeStore) ListGateways(ctx context.Context, orgID string) ([]domain.GatewayRecord, error) {
	return nil, nil
}

func (f *fakeStore) RecordWebhookEvent(ctx context.Context, event *domain.NormalizedWebhookEvent) error {
	return nil
}

// newTestRouter builds the full router over a fake store with one active
// Asaas gateway for org_1 (webhook secret "whsec").
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	sealer, err := crypto.NewSealer("test-master-key")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	sealedKey, err := sealer.Encrypt("key_test")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	sealedSecret, err := sealer.Encrypt("whsec")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	store := &fakeStore{records: map[string]*domain.GatewayRecord{
		"org_1": {
			ID:                     "gw_1",
			OrganizationID:         "org_1",
			Provider:               "asaas",
			APIKeyEncrypted:        sealedKey,
			WebhookSecretEncrypted: sealedSecret,
			Active:                 true,
		},
	}}

	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	factory := service.NewGatewayFactory(
		store, sealer, http.DefaultClient,
		cache.New[adapter.Adapter](time.Minute), metrics, logger,
	)
	svc := service.NewPaymentService(factory, store, metrics, logger)
	return handler.NewRouter(svc, store, metrics, logger)
}

func TestRouter_Operational(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/ping", "/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestRouter_Providers(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/providers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Providers []domain.ProviderInfo `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Providers) != len(domain.AllProviders) {
		t.Errorf("providers = %d, want %d", len(body.Providers), len(domain.AllProviders))
	}
}

func TestRouter_Capabilities(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/organizations/org_1/capabilities", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Provider     string                      `json:"provider"`
		Capabilities domain.ProviderCapabilities `json:"capabilities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Provider != "asaas" {
		t.Errorf("provider = %q, want asaas", body.Provider)
	}
	if !body.Capabilities.Pix {
		t.Error("expected pix capability for asaas")
	}

	// Organization without a configured gateway maps to 400.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/organizations/org_none/capabilities", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unconfigured organization", rec.Code)
	}
}

func TestRouter_CreateChargeValidation(t *testing.T) {
	router := newTestRouter(t)

	// Zero amount never reaches the provider.
	payload := `{"method":"pix","amount_cents":0,"customer":{"name":"Maria","document":"12345678909"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/organizations/org_1/charges", strings.NewReader(payload)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for zero amount", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/organizations/org_1/charges", strings.NewReader("not-json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed body", rec.Code)
	}
}

func TestRouter_Webhook(t *testing.T) {
	router := newTestRouter(t)
	body := `{"id":"evt_1","event":"PAYMENT_RECEIVED","payment":{"id":"pay_1","status":"RECEIVED","value":350.00}}`

	// Valid delivery.
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/asaas?org=org_1", strings.NewReader(body))
	req.Header.Set("asaas-access-token", "whsec")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Received  bool   `json:"received"`
		EventID   string `json:"event_id"`
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !resp.Received || resp.EventID == "" {
		t.Errorf("unexpected ack: %+v", resp)
	}

	// Missing org parameter.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/webhooks/asaas", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without org", rec.Code)
	}

	// Bad shared token.
	req = httptest.NewRequest(http.MethodPost, "/v1/webhooks/asaas?org=org_1", strings.NewReader(body))
	req.Header.Set("asaas-access-token", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid token", rec.Code)
	}

	// Unknown provider segment.
	req = httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe?org=org_1", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown provider", rec.Code)
	}
}
