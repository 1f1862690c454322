package adapter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"github.com/google/uuid"
)

// Shared webhook-verification helpers. Every adapter verifies the strongest
// mechanism its provider exposes: an HMAC signature of the raw body where
// one is documented, otherwise a constant-time compare of the shared secret
// the provider echoes back in a header.

// hmacSHA256Hex computes the hex HMAC-SHA256 of data under secret.
func hmacSHA256Hex(secret string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// secureCompare is a constant-time string comparison.
func secureCompare(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// validateBodySignature checks an HMAC-SHA256-of-body signature carried in
// header. A "sha256=" prefix on the header value is tolerated.
func validateBodySignature(headers http.Header, header, secret string, body []byte) bool {
	if secret == "" {
		return false
	}
	got := strings.TrimPrefix(headers.Get(header), "sha256=")
	if got == "" {
		return false
	}
	return secureCompare(strings.ToLower(got), hmacSHA256Hex(secret, body))
}

// unmarshalWebhook decodes a webhook payload, wrapping malformed JSON in a
// provider-tagged adapter error.
func unmarshalWebhook(provider domain.Provider, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewAdapterError(provider, fmt.Sprintf("decode webhook payload: %v", err))
	}
	return nil
}

// webhookEventID keeps the provider's own event id when it sends one and
// mints a uuid otherwise, so downstream dedup always has a key.
func webhookEventID(providerID string) string {
	if providerID != "" {
		return providerID
	}
	return uuid.New().String()
}

// validateSharedToken checks a provider that echoes the configured webhook
// secret back verbatim in a header.
func validateSharedToken(headers http.Header, header, secret string) bool {
	if secret == "" {
		return false
	}
	got := headers.Get(header)
	if got == "" {
		return false
	}
	return secureCompare(got, secret)
}
