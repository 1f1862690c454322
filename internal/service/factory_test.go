package service_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/adapter"
	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/infra/cache"
	"github.com/escolahub/payments-gateway-go/internal/infra/crypto"
	"github.com/escolahub/payments-gateway-go/internal/infra/observability"
	"github.com/escolahub/payments-gateway-go/internal/service"

	"go.uber.org/zap"
)

// fakeStore serves gateway rows from memory and records webhook events.
type fakeStore struct {
	records map[string]*domain.GatewayRecord
	events  []*domain.NormalizedWebhookEvent
}

func (f *fakeStore) FindActiveGateway(ctx context.Context, orgID string) (*domain.GatewayRecord, error) {
	rec, ok := f.records[orgID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "gateway", ID: orgID}
	}
	return rec, nil
}

func (f *fakeStore) ListGateways(ctx context.Context, orgID string) ([]domain.GatewayRecord, error) {
	rec, ok := f.records[orgID]
	if !ok {
		return nil, nil
	}
	return []domain.GatewayRecord{*rec}, nil
}

func (f *fakeStore) RecordWebhookEvent(ctx context.Context, event *domain.NormalizedWebhookEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestSealer(t *testing.T) *crypto.Sealer {
	t.Helper()
	sealer, err := crypto.NewSealer("test-master-key")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return sealer
}

func seal(t *testing.T, sealer *crypto.Sealer, plaintext string) string {
	t.Helper()
	sealed, err := sealer.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return sealed
}

func newTestFactory(t *testing.T, store *fakeStore) (*service.GatewayFactory, *crypto.Sealer) {
	t.Helper()
	sealer := newTestSealer(t)
	factory := service.NewGatewayFactory(
		store,
		sealer,
		http.DefaultClient,
		cache.New[adapter.Adapter](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
	return factory, sealer
}

func gatewayRecord(t *testing.T, sealer *crypto.Sealer, provider string) *domain.GatewayRecord {
	t.Helper()
	return &domain.GatewayRecord{
		ID:                     "gw_" + provider,
		OrganizationID:         "org_1",
		Provider:               provider,
		APIKeyEncrypted:        seal(t, sealer, "api-key"),
		SecretKeyEncrypted:     seal(t, sealer, "secret-key"),
		WebhookSecretEncrypted: seal(t, sealer, "whsec"),
		Active:                 true,
	}
}

func TestAdapterForOrg_ResolvesAndCaches(t *testing.T) {
	store := &fakeStore{records: map[string]*domain.GatewayRecord{}}
	factory, sealer := newTestFactory(t, store)
	store.records["org_1"] = gatewayRecord(t, sealer, "asaas")

	a, err := factory.AdapterForOrg(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("AdapterForOrg: %v", err)
	}
	if a.Provider() != domain.ProviderAsaas {
		t.Errorf("provider = %q, want asaas", a.Provider())
	}

	// A second resolution is served from the cache: even after the row
	// disappears from the store, the adapter is still returned.
	delete(store.records, "org_1")
	cached, err := factory.AdapterForOrg(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("cached AdapterForOrg: %v", err)
	}
	if cached != a {
		t.Error("second resolution did not reuse the cached adapter")
	}

	// Invalidate forces a re-read, which now fails.
	factory.Invalidate("org_1")
	if _, err := factory.AdapterForOrg(context.Background(), "org_1"); err == nil {
		t.Error("expected error after invalidation with no gateway row")
	}
}

func TestAdapterForOrg_NoActiveGateway(t *testing.T) {
	store := &fakeStore{records: map[string]*domain.GatewayRecord{}}
	factory, _ := newTestFactory(t, store)

	_, err := factory.AdapterForOrg(context.Background(), "org_missing")
	if err == nil {
		t.Fatal("expected error for organization without a gateway")
	}
	var ae *domain.AdapterError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *domain.AdapterError, got %T", err)
	}
	if ae.Provider != "factory" {
		t.Errorf("provider = %q, want factory", ae.Provider)
	}
	if !strings.Contains(ae.Message, "no active payment gateway configured") {
		t.Errorf("message = %q", ae.Message)
	}
}

func TestCreateAdapterFromGateway_UnknownProvider(t *testing.T) {
	store := &fakeStore{records: map[string]*domain.GatewayRecord{}}
	factory, sealer := newTestFactory(t, store)

	record := gatewayRecord(t, sealer, "stripe")
	_, err := factory.CreateAdapterFromGateway(record)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	var ae *domain.AdapterError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *domain.AdapterError, got %T", err)
	}
	if ae.Provider != "factory" {
		t.Errorf("provider = %q, want factory", ae.Provider)
	}
}

func TestCreateAdapterFromGateway_DecryptionFailure(t *testing.T) {
	store := &fakeStore{records: map[string]*domain.GatewayRecord{}}
	factory, _ := newTestFactory(t, store)

	// Credentials sealed under a different master key cannot be opened.
	otherSealer, err := crypto.NewSealer("a-different-key")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	record := gatewayRecord(t, otherSealer, "asaas")

	_, err = factory.CreateAdapterFromGateway(record)
	if err == nil {
		t.Fatal("expected decryption failure")
	}
	var ae *domain.AdapterError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *domain.AdapterError, got %T", err)
	}
	if ae.Provider != "factory" {
		t.Errorf("provider = %q, want factory", ae.Provider)
	}
	if !strings.Contains(ae.Message, "credential decryption failed") {
		t.Errorf("message = %q", ae.Message)
	}
	// Key material must never leak into the error.
	if strings.Contains(err.Error(), "api-key") || strings.Contains(err.Error(), "a-different-key") {
		t.Errorf("error leaks key material: %q", err)
	}
}

func TestCreateAdapterFromGateway_DispatchesEveryProvider(t *testing.T) {
	store := &fakeStore{records: map[string]*domain.GatewayRecord{}}
	factory, sealer := newTestFactory(t, store)

	// These bank integrations refuse to build without an mTLS certificate.
	needsCert := map[domain.Provider]bool{
		domain.ProviderInter:     true,
		domain.ProviderSantander: true,
		domain.ProviderSafra:     true,
		domain.ProviderC6Bank:    true,
	}

	for _, provider := range domain.AllProviders {
		record := gatewayRecord(t, sealer, string(provider))

		a, err := factory.CreateAdapterFromGateway(record)
		if needsCert[provider] {
			if err == nil {
				t.Errorf("%s: expected certificate error without mTLS material", provider)
				continue
			}
			var ae *domain.AdapterError
			if !errors.As(err, &ae) || ae.Provider != string(provider) {
				t.Errorf("%s: unexpected error %v", provider, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: CreateAdapterFromGateway: %v", provider, err)
			continue
		}
		if a.Provider() != provider {
			t.Errorf("adapter provider = %q, want %q", a.Provider(), provider)
		}
	}
}

func TestHandleWebhook(t *testing.T) {
	store := &fakeStore{records: map[string]*domain.GatewayRecord{}}
	factory, sealer := newTestFactory(t, store)
	store.records["org_1"] = gatewayRecord(t, sealer, "asaas")

	svc := service.NewPaymentService(factory, store, observability.NewMetrics(), zap.NewNop())
	body := []byte(`{"id":"evt_1","event":"PAYMENT_RECEIVED","payment":{"id":"pay_1","status":"RECEIVED","value":350.00}}`)

	// Valid delivery: shared token matches the decrypted webhook secret.
	headers := http.Header{}
	headers.Set("asaas-access-token", "whsec")
	event, err := svc.HandleWebhook(context.Background(), "org_1", "asaas", headers, body)
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if event.EventType != domain.EventChargeConfirmed {
		t.Errorf("event type = %q, want charge_confirmed", event.EventType)
	}
	if len(store.events) != 1 {
		t.Errorf("recorded events = %d, want 1", len(store.events))
	}

	// Invalid signature is a validation error, not a pass-through.
	bad := http.Header{}
	bad.Set("asaas-access-token", "wrong")
	_, err = svc.HandleWebhook(context.Background(), "org_1", "asaas", bad, body)
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Errorf("expected *domain.ErrValidation for a bad token, got %v", err)
	}

	// Unknown provider identifier.
	_, err = svc.HandleWebhook(context.Background(), "org_1", "stripe", headers, body)
	var ae *domain.AdapterError
	if !errors.As(err, &ae) || ae.Provider != "factory" {
		t.Errorf("expected a factory error for unknown provider, got %v", err)
	}

	// Provider that is known but not the organization's active gateway.
	_, err = svc.HandleWebhook(context.Background(), "org_1", "pagbank", headers, body)
	if !errors.As(err, &ae) || ae.Provider != "factory" {
		t.Errorf("expected a factory error for provider mismatch, got %v", err)
	}
}

func TestSupportedProviders_MatchAdapterCapabilities(t *testing.T) {
	store := &fakeStore{records: map[string]*domain.GatewayRecord{}}
	factory, sealer := newTestFactory(t, store)

	byID := map[domain.Provider]domain.ProviderInfo{}
	for _, info := range service.SupportedProviders() {
		byID[info.ID] = info
	}

	// PSP constructors need no mTLS material, so the advertised metadata
	// can be checked against the live adapter directly. Debit must agree
	// in both places: pagbank, mercadopago and pagarme advertise it,
	// asaas does not.
	psps := []domain.Provider{
		domain.ProviderAsaas, domain.ProviderPagBank,
		domain.ProviderMercadoPago, domain.ProviderPagarme,
	}
	for _, provider := range psps {
		a, err := factory.CreateAdapterFromGateway(gatewayRecord(t, sealer, string(provider)))
		if err != nil {
			t.Fatalf("%s: CreateAdapterFromGateway: %v", provider, err)
		}
		if got, want := a.Capabilities(), byID[provider].Caps; got != want {
			t.Errorf("%s: adapter capabilities %+v disagree with metadata %+v", provider, got, want)
		}
	}
	if byID[domain.ProviderAsaas].Caps.DebitCard {
		t.Error("asaas must not advertise debit")
	}
	for _, provider := range []domain.Provider{domain.ProviderPagBank, domain.ProviderMercadoPago, domain.ProviderPagarme} {
		if !byID[provider].Caps.DebitCard {
			t.Errorf("%s must advertise debit", provider)
		}
	}
}

func TestSupportedProviders(t *testing.T) {
	infos := service.SupportedProviders()
	if len(infos) != len(domain.AllProviders) {
		t.Fatalf("providers = %d, want %d", len(infos), len(domain.AllProviders))
	}
	seen := map[domain.Provider]bool{}
	for _, info := range infos {
		if info.DisplayName == "" {
			t.Errorf("%s: empty display name", info.ID)
		}
		if info.Category != "psp" && info.Category != "bank" {
			t.Errorf("%s: category = %q", info.ID, info.Category)
		}
		seen[info.ID] = true
	}
	for _, p := range domain.AllProviders {
		if !seen[p] {
			t.Errorf("provider %s missing from metadata", p)
		}
	}
}
