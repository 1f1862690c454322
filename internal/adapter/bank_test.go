package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/escolahub/payments-gateway-go/internal/domain"
	"github.com/escolahub/payments-gateway-go/internal/status"

	"go.uber.org/zap"
)

func newTestBank(t *testing.T, srvURL string) *bankClient {
	t.Helper()
	cfg := domain.GatewayConfig{
		Provider:      domain.ProviderInter,
		APIKey:        "client_id",
		SecretKey:     "client_secret",
		WebhookSecret: "whsec_bank",
	}
	opts := bankOptions{
		prodBase:  srvURL,
		prodToken: srvURL + "/oauth/token",
		caps:      domain.ProviderCapabilities{Pix: true, Boleto: true},
		ep: bankEndpoints{
			cob:    "/cob",
			boleto: "/boletos",
		},
	}
	b, err := newBankClient(domain.ProviderInter, cfg, opts, http.DefaultClient, zap.NewNop())
	if err != nil {
		t.Fatalf("newBankClient: %v", err)
	}
	return b
}

func bankTokenHandler(mux *http.ServeMux) {
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok_bank",
			"expires_in":   3600,
		})
	})
}

func TestBank_CreatePixCharge(t *testing.T) {
	mux := http.NewServeMux()
	bankTokenHandler(mux)
	mux.HandleFunc("PUT /cob/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok_bank" {
			t.Errorf("authorization = %q, want Bearer tok_bank", got)
		}
		txid := strings.TrimPrefix(r.URL.Path, "/cob/")
		json.NewEncoder(w).Encode(map[string]any{
			"txid":          txid,
			"status":        "ATIVA",
			"pixCopiaECola": "00020126330014br.gov.bcb.pix",
			"calendario":    map[string]any{"expiracao": 86400},
			"valor":         map[string]any{"original": "350.00"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBank(t, srv.URL)
	result, err := b.CreateCharge(context.Background(), domain.ChargeRequest{
		Method:            domain.MethodPix,
		AmountCents:       35000,
		DueDate:           "2099-01-01",
		ExternalReference: "order-77",
		Customer: domain.CustomerParams{
			Name:     "Empresa Ltda",
			Document: "12.345.678/0001-95",
		},
	})
	if err != nil {
		t.Fatalf("CreateCharge: %v", err)
	}

	if result.Status != status.Pending {
		t.Errorf("status = %q, want pending (ATIVA)", result.Status)
	}
	if result.Pix == nil || result.Pix.CopyPaste == "" {
		t.Fatal("expected pix copy-paste payload")
	}
	if result.Pix.ExpiresAt == nil {
		t.Error("expected expiration from calendario")
	}
	if result.ExternalID != pixTxid("order-77") {
		t.Errorf("external id = %q, want the deterministic txid", result.ExternalID)
	}
}

func TestBank_GetCharge_BoletoFallback(t *testing.T) {
	mux := http.NewServeMux()
	bankTokenHandler(mux)
	mux.HandleFunc("GET /cob/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"title":"cob not found"}`))
	})
	mux.HandleFunc("GET /boletos/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"nossoNumero":  "123456",
			"situacao":     "LIQUIDADO",
			"valorNominal": "100.00",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := newTestBank(t, srv.URL)
	st, err := b.GetCharge(context.Background(), "123456")
	if err != nil {
		t.Fatalf("GetCharge: %v", err)
	}
	if st.Status != status.Confirmed {
		t.Errorf("status = %q, want confirmed (LIQUIDADO)", st.Status)
	}
	if st.AmountCents != 10000 {
		t.Errorf("amount = %d, want 10000", st.AmountCents)
	}
}

func TestBank_RefundIsUnsupported(t *testing.T) {
	b := newTestBank(t, "http://unused")

	_, err := b.RefundCharge(context.Background(), "txid123", 0)
	if err == nil {
		t.Fatal("expected refund to fail")
	}
	if !domain.IsUnsupported(err) {
		t.Errorf("expected an unsupported-operation error, got %v", err)
	}
	ae := err.(*domain.AdapterError)
	if ae.Provider != "inter" {
		t.Errorf("provider = %q, want inter", ae.Provider)
	}
	// Operation names are snake_case across the package, matching the
	// metric labels.
	if !strings.Contains(ae.Message, "refund_charge") {
		t.Errorf("message = %q, want the refund_charge operation name", ae.Message)
	}
}

func TestBank_SubscriptionsAreUnsupported(t *testing.T) {
	b := newTestBank(t, "http://unused")
	ctx := context.Background()

	if _, err := b.CreateSubscription(ctx, domain.SubscriptionRequest{}); !domain.IsUnsupported(err) {
		t.Errorf("CreateSubscription: expected unsupported, got %v", err)
	}
	if _, err := b.GetSubscription(ctx, "x"); !domain.IsUnsupported(err) {
		t.Errorf("GetSubscription: expected unsupported, got %v", err)
	}
	if err := b.CancelSubscription(ctx, "x"); !domain.IsUnsupported(err) {
		t.Errorf("CancelSubscription: expected unsupported, got %v", err)
	}
	if _, err := b.CreateRecipient(ctx, domain.RecipientParams{}); !domain.IsUnsupported(err) {
		t.Errorf("CreateRecipient: expected unsupported, got %v", err)
	}
	if _, err := b.CreateCustomer(ctx, domain.CustomerParams{}); !domain.IsUnsupported(err) {
		t.Errorf("CreateCustomer: expected unsupported, got %v", err)
	}
}

func TestBank_UnconfiguredEndpointFamiliesFailFast(t *testing.T) {
	b := newTestBank(t, "http://unused")
	ctx := context.Background()

	if _, err := b.GetBalance(ctx); !domain.IsUnsupported(err) {
		t.Errorf("GetBalance: expected unsupported, got %v", err)
	}
	if _, err := b.CreateTransfer(ctx, domain.TransferRequest{AmountCents: 100, PixKey: "k"}); !domain.IsUnsupported(err) {
		t.Errorf("CreateTransfer: expected unsupported, got %v", err)
	}
}

func TestBank_ValidateWebhook(t *testing.T) {
	b := newTestBank(t, "http://unused")
	body := []byte(`{"pix":[{"txid":"abc","valor":"10.00"}]}`)

	// Signature path wins when the signature header is present.
	headers := http.Header{}
	headers.Set("x-webhook-signature", hmacSHA256Hex("whsec_bank", body))
	if !b.ValidateWebhook(headers, body) {
		t.Error("valid body signature rejected")
	}

	headers.Set("x-webhook-signature", hmacSHA256Hex("wrong", body))
	if b.ValidateWebhook(headers, body) {
		t.Error("invalid signature accepted")
	}

	// Shared-token fallback when no signature header is present.
	headers = http.Header{}
	headers.Set("x-webhook-token", "whsec_bank")
	if !b.ValidateWebhook(headers, body) {
		t.Error("valid shared token rejected")
	}

	if b.ValidateWebhook(http.Header{}, body) {
		t.Error("delivery with no credentials accepted")
	}
}

func TestBank_ParseWebhookEvent_PixSettlement(t *testing.T) {
	b := newTestBank(t, "http://unused")

	body := []byte(`{"pix":[{"txid":"order77tx","endToEndId":"E123","valor":"350.00","horario":"2026-09-01T10:00:00Z"}]}`)
	event, err := b.ParseWebhookEvent(body)
	if err != nil {
		t.Fatalf("ParseWebhookEvent: %v", err)
	}
	if event.EventType != domain.EventChargeConfirmed {
		t.Errorf("event type = %q, want charge_confirmed", event.EventType)
	}
	if event.ExternalChargeID != "order77tx" {
		t.Errorf("external charge id = %q", event.ExternalChargeID)
	}
	if event.AmountCents != 35000 {
		t.Errorf("amount = %d, want 35000", event.AmountCents)
	}
	if event.PaidAt == nil {
		t.Error("expected paid_at from horario")
	}
}
