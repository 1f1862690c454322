package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.uber.org/zap"
)

func newTestMercadoPago(secret string) *mercadopagoClient {
	return newTestMercadoPagoAt("http://unused", secret)
}

func newTestMercadoPagoAt(srvURL, secret string) *mercadopagoClient {
	cfg := domain.GatewayConfig{
		Provider:      domain.ProviderMercadoPago,
		APIKey:        "TEST-token",
		WebhookSecret: secret,
	}
	return &mercadopagoClient{
		cfg: cfg,
		api: &apiClient{
			provider:   domain.ProviderMercadoPago,
			baseURL:    srvURL,
			httpClient: http.DefaultClient,
			auth:       staticBearerAuth(cfg.APIKey),
			logger:     zap.NewNop(),
		},
		logger: zap.NewNop(),
	}
}

func TestMercadoPago_CreateDebitCharge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/card_tokens", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"tok_1"}`))
	})
	mux.HandleFunc("POST /v1/payments", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode payment request: %v", err)
		}
		if req["payment_method_id"] != "debvisa" {
			t.Errorf("payment_method_id = %v, want debvisa", req["payment_method_id"])
		}
		if req["installments"] != float64(1) {
			t.Errorf("installments = %v, want 1", req["installments"])
		}
		if req["token"] != "tok_1" {
			t.Errorf("token = %v, want tok_1", req["token"])
		}
		w.Write([]byte(`{
			"id": 42,
			"status": "approved",
			"transaction_amount": 120.00,
			"authorization_code": "auth_1",
			"card": {"last_four_digits": "1111"}
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	m := newTestMercadoPagoAt(srv.URL, "whsec_mp")
	result, err := m.CreateCharge(context.Background(), domain.ChargeRequest{
		Method:      domain.MethodDebitCard,
		AmountCents: 12000,
		Customer: domain.CustomerParams{
			Name:     "Maria Silva",
			Document: "123.456.789-09",
		},
		Card: &domain.CardData{
			Number:      "4111 1111 1111 1111",
			HolderName:  "MARIA SILVA",
			ExpiryMonth: "12",
			ExpiryYear:  "30",
			CVV:         "123",
		},
	})
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}
	if result.Card == nil || result.Card.AuthorizationCode != "auth_1" {
		t.Errorf("expected card artifacts with the authorization code, got %+v", result.Card)
	}
	if result.AmountCents != 12000 {
		t.Errorf("amount = %d, want 12000", result.AmountCents)
	}

	// Debit without card data never reaches the provider.
	if _, err := m.CreateCharge(context.Background(), domain.ChargeRequest{
		Method:      domain.MethodDebitCard,
		AmountCents: 12000,
		Customer:    domain.CustomerParams{Name: "Maria Silva", Document: "123.456.789-09"},
	}); err == nil {
		t.Error("expected error for debit charge without card data")
	}
}

func mpSignedHeaders(secret, dataID, requestID, ts string) http.Header {
	manifest := "id:" + dataID + ";request-id:" + requestID + ";ts:" + ts + ";"
	headers := http.Header{}
	headers.Set("x-request-id", requestID)
	headers.Set("x-signature", "ts="+ts+",v1="+hmacSHA256Hex(secret, []byte(manifest)))
	return headers
}

func TestMercadoPago_ValidateWebhook(t *testing.T) {
	m := newTestMercadoPago("whsec_mp")
	body := []byte(`{"action":"payment.updated","data":{"id":123456}}`)

	headers := mpSignedHeaders("whsec_mp", "123456", "req-1", "1756700000")
	if !m.ValidateWebhook(headers, body) {
		t.Error("valid manifest signature rejected")
	}

	// Signature under the wrong secret.
	headers = mpSignedHeaders("other-secret", "123456", "req-1", "1756700000")
	if m.ValidateWebhook(headers, body) {
		t.Error("signature under the wrong secret accepted")
	}

	// Signature over a different data.id than the body carries.
	headers = mpSignedHeaders("whsec_mp", "999", "req-1", "1756700000")
	if m.ValidateWebhook(headers, body) {
		t.Error("signature for a different payment id accepted")
	}

	// Missing signature header.
	if m.ValidateWebhook(http.Header{}, body) {
		t.Error("delivery without x-signature accepted")
	}

	// No configured secret always rejects.
	unconfigured := newTestMercadoPago("")
	headers = mpSignedHeaders("", "123456", "req-1", "1756700000")
	if unconfigured.ValidateWebhook(headers, body) {
		t.Error("adapter without webhook secret accepted a delivery")
	}
}

func TestMercadoPago_ValidateWebhook_StringDataID(t *testing.T) {
	m := newTestMercadoPago("whsec_mp")

	// data.id arrives as a string for some topics and must be lowercased
	// before signing, per the provider's manifest rules.
	body := []byte(`{"data":{"id":"ABC123"}}`)
	headers := mpSignedHeaders("whsec_mp", "abc123", "req-2", "1756700001")
	if !m.ValidateWebhook(headers, body) {
		t.Error("lowercased string data.id signature rejected")
	}
}

func TestMercadoPago_ParseWebhookEvent(t *testing.T) {
	m := newTestMercadoPago("whsec_mp")

	event, err := m.ParseWebhookEvent([]byte(`{"id":999,"action":"payment.updated","data":{"id":123456}}`))
	if err != nil {
		t.Fatalf("ParseWebhookEvent: %v", err)
	}
	if event.EventType != domain.EventChargeUpdated {
		t.Errorf("event type = %q, want charge_updated", event.EventType)
	}
	if event.ExternalChargeID != "123456" {
		t.Errorf("external charge id = %q, want 123456", event.ExternalChargeID)
	}

	event, err = m.ParseWebhookEvent([]byte(`{"type":"subscription_preapproval","data":{"id":"sub_1"}}`))
	if err != nil {
		t.Fatalf("ParseWebhookEvent preapproval: %v", err)
	}
	if event.EventType != domain.EventSubscriptionUpdate {
		t.Errorf("event type = %q, want subscription_updated", event.EventType)
	}
}
