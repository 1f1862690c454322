package adapter

import (
	"net/http"
	"testing"
)

func TestValidateBodySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"id":"evt_1"}`)
	sig := hmacSHA256Hex(secret, body)

	headers := http.Header{}
	headers.Set("x-hub-signature", sig)
	if !validateBodySignature(headers, "x-hub-signature", secret, body) {
		t.Error("valid signature rejected")
	}

	headers.Set("x-hub-signature", "sha256="+sig)
	if !validateBodySignature(headers, "x-hub-signature", secret, body) {
		t.Error("valid sha256= prefixed signature rejected")
	}

	headers.Set("x-hub-signature", hmacSHA256Hex("wrong-secret", body))
	if validateBodySignature(headers, "x-hub-signature", secret, body) {
		t.Error("signature under the wrong secret accepted")
	}

	headers.Set("x-hub-signature", sig)
	if validateBodySignature(headers, "x-hub-signature", secret, []byte(`tampered`)) {
		t.Error("signature over a different body accepted")
	}
}

func TestValidateBodySignature_MissingPieces(t *testing.T) {
	body := []byte(`{}`)

	if validateBodySignature(http.Header{}, "x-hub-signature", "secret", body) {
		t.Error("missing header accepted")
	}

	headers := http.Header{}
	headers.Set("x-hub-signature", hmacSHA256Hex("", body))
	if validateBodySignature(headers, "x-hub-signature", "", body) {
		t.Error("empty configured secret must always reject")
	}
}

func TestValidateSharedToken(t *testing.T) {
	headers := http.Header{}
	headers.Set("asaas-access-token", "tok_1")

	if !validateSharedToken(headers, "asaas-access-token", "tok_1") {
		t.Error("matching token rejected")
	}
	if validateSharedToken(headers, "asaas-access-token", "tok_2") {
		t.Error("mismatched token accepted")
	}
	if validateSharedToken(http.Header{}, "asaas-access-token", "tok_1") {
		t.Error("missing header accepted")
	}
	if validateSharedToken(headers, "asaas-access-token", "") {
		t.Error("empty configured secret must always reject")
	}
}

func TestWebhookEventID(t *testing.T) {
	if got := webhookEventID("evt_9"); got != "evt_9" {
		t.Errorf("provider id not kept: %q", got)
	}
	if got := webhookEventID(""); got == "" {
		t.Error("expected a generated id for empty provider id")
	}
}
