package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/status"

	"go.uber.org/zap"
)

func newTestAsaas(srvURL string) *asaasClient {
	cfg := domain.GatewayConfig{
		Provider:      domain.ProviderAsaas,
		APIKey:        "key_test",
		WebhookSecret: "whsec_asaas",
	}
	return &asaasClient{
		cfg: cfg,
		api: &apiClient{
			provider:   domain.ProviderAsaas,
			baseURL:    srvURL,
			httpClient: http.DefaultClient,
			auth:       staticHeaderAuth("access_token", cfg.APIKey),
			logger:     zap.NewNop(),
		},
		logger: zap.NewNop(),
	}
}

func TestAsaas_CreatePixCharge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cpfCnpj") != "12345678909" {
			t.Errorf("customer lookup document = %q", r.URL.Query().Get("cpfCnpj"))
		}
		w.Write([]byte(`{"data":[]}`))
	})
	mux.HandleFunc("POST /customers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"cus_1","name":"Maria Silva","cpfCnpj":"12345678909"}`))
	})
	mux.HandleFunc("POST /payments", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("access_token") != "key_test" {
			t.Errorf("missing access_token header")
		}
		w.Write([]byte(`{
			"id": "pay_1",
			"status": "PENDING",
			"value": 350.00,
			"dueDate": "2026-09-10",
			"externalReference": "order-55",
			"invoiceUrl": "https://asaas.test/i/pay_1"
		}`))
	})
	mux.HandleFunc("GET /payments/pay_1/pixQrCode", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"encodedImage": "aW1n",
			"payload": "00020126330014br.gov.bcb.pix",
			"expirationDate": "2026-09-10 23:59:59"
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := newTestAsaas(srv.URL)
	result, err := a.CreateCharge(context.Background(), domain.ChargeRequest{
		Method:            domain.MethodPix,
		AmountCents:       35000,
		DueDate:           "2026-09-10",
		ExternalReference: "order-55",
		Customer: domain.CustomerParams{
			Name:     "Maria Silva",
			Document: "123.456.789-09",
		},
	})
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}

	if result.Status != status.Pending {
		t.Errorf("status = %q, want pending", result.Status)
	}
	if result.RawStatus != "PENDING" {
		t.Errorf("raw status = %q, want PENDING", result.RawStatus)
	}
	if result.AmountCents != 35000 {
		t.Errorf("amount = %d, want 35000", result.AmountCents)
	}
	if result.ExternalID != "pay_1" {
		t.Errorf("external id = %q, want pay_1", result.ExternalID)
	}
	if result.Pix == nil || result.Pix.CopyPaste == "" {
		t.Fatal("expected non-empty pix copy-paste payload")
	}
	if result.Pix.ExpiresAt == nil {
		t.Error("expected pix expiration to be parsed")
	}
}

func TestAsaas_CreateCustomerIsIdempotent(t *testing.T) {
	creates := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"cus_1","name":"Maria Silva","cpfCnpj":"12345678909"}]}`))
	})
	mux.HandleFunc("POST /customers", func(w http.ResponseWriter, r *http.Request) {
		creates++
		w.Write([]byte(`{"id":"cus_2"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := newTestAsaas(srv.URL)
	c, err := a.CreateCustomer(context.Background(), domain.CustomerParams{
		Name:     "Maria Silva",
		Document: "123.456.789-09",
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if c.ExternalID != "cus_1" {
		t.Errorf("external id = %q, want the existing cus_1", c.ExternalID)
	}
	if creates != 0 {
		t.Errorf("create calls = %d, want 0", creates)
	}
}

func TestAsaas_ValidateWebhook(t *testing.T) {
	a := newTestAsaas("http://unused")

	headers := http.Header{}
	headers.Set("asaas-access-token", "whsec_asaas")
	if !a.ValidateWebhook(headers, []byte(`{}`)) {
		t.Error("valid shared token rejected")
	}

	headers.Set("asaas-access-token", "wrong")
	if a.ValidateWebhook(headers, []byte(`{}`)) {
		t.Error("wrong shared token accepted")
	}

	if a.ValidateWebhook(http.Header{}, []byte(`{}`)) {
		t.Error("missing header accepted")
	}
}

func TestAsaas_ParseWebhookEvent(t *testing.T) {
	a := newTestAsaas("http://unused")

	body := []byte(`{
		"id": "evt_1",
		"event": "PAYMENT_RECEIVED",
		"payment": {
			"id": "pay_1",
			"status": "RECEIVED",
			"value": 350.00,
			"externalReference": "order-55",
			"clientPaymentDate": "2026-09-01"
		}
	}`)
	event, err := a.ParseWebhookEvent(body)
	if err != nil {
		t.Fatalf("ParseWebhookEvent: %v", err)
	}
	if event.EventType != domain.EventChargeConfirmed {
		t.Errorf("event type = %q, want charge_confirmed", event.EventType)
	}
	if event.ExternalChargeID != "pay_1" {
		t.Errorf("external charge id = %q, want pay_1", event.ExternalChargeID)
	}
	if event.AmountCents != 35000 {
		t.Errorf("amount = %d, want 35000", event.AmountCents)
	}
	if event.PaidAt == nil {
		t.Error("expected paid_at to be set")
	}

	if _, err := a.ParseWebhookEvent([]byte(`not-json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
