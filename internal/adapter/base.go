package adapter

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("adapter")

// authFunc attaches provider-specific authentication to an outgoing request.
// For OAuth2 banks it may perform a token exchange first.
type authFunc func(ctx context.Context, req *http.Request) error

// apiClient is the shared authenticated-HTTP helper every adapter builds on.
// It serializes JSON bodies, attaches auth via the hook, and turns any
// non-2xx response into a *domain.AdapterError carrying the HTTP status and
// raw response body. Credentials never appear in error messages.
type apiClient struct {
	provider   domain.Provider
	baseURL    string
	httpClient *http.Client
	auth       authFunc
	logger     *zap.Logger
}

// do issues one request. A nil body sends no payload; a nil out discards the
// response. A 204 No Content (or empty body) is treated as an empty
// successful object, not an error.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	return c.doWith(ctx, method, path, nil, body, out)
}

// doWith is do with extra request headers, for providers that require
// per-call headers such as idempotency keys.
func (c *apiClient) doWith(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("%s.%s", c.provider, method))
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", string(c.provider)),
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.NewAdapterError(c.provider, fmt.Sprintf("encode request body: %v", err))
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return domain.NewAdapterError(c.provider, fmt.Sprintf("build request: %v", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if c.auth != nil {
		if err := c.auth(ctx, req); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("provider request failed",
			zap.String("provider", string(c.provider)),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return domain.NewAdapterError(c.provider, fmt.Sprintf("%s %s: %v", method, path, err))
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return domain.NewAdapterError(c.provider, fmt.Sprintf("read response body: %v", err))
	}
	raw := buf.Bytes()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("provider returned non-2xx",
			zap.String("provider", string(c.provider)),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return domain.NewHTTPError(c.provider,
			fmt.Sprintf("%s %s failed", method, path),
			resp.StatusCode, string(raw))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.NewAdapterError(c.provider, fmt.Sprintf("decode response: %v", err))
	}
	return nil
}

// newMTLSClient clones timeout settings from base and installs the client
// certificate required by banks that mandate mutual TLS.
func newMTLSClient(base *http.Client, certPEM, keyPEM string) (*http.Client, error) {
	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}
	return &http.Client{Timeout: base.Timeout, Transport: transport}, nil
}

// ============================================================
// Money and document helpers
// ============================================================

// centsToDecimal renders minor units as a decimal string ("35000" cents →
// "350.00"), the format the PIX cob APIs and most PSPs expect.
func centsToDecimal(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// centsToFloat converts minor units to a float for providers whose wire
// format uses numeric reais. Only used at the serialization boundary.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100
}

// floatToCents converts a provider's numeric reais amount back to minor
// units, rounding to the nearest centavo.
func floatToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// decimalToCents parses a decimal string amount ("350.00") into minor units.
func decimalToCents(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return floatToCents(v)
}

// methodSupported checks a charge method against advertised capabilities.
func methodSupported(caps domain.ProviderCapabilities, m domain.PaymentMethod) bool {
	switch m {
	case domain.MethodPix:
		return caps.Pix
	case domain.MethodBoleto:
		return caps.Boleto
	case domain.MethodCreditCard:
		return caps.CreditCard
	case domain.MethodDebitCard:
		return caps.DebitCard
	}
	return false
}

// onlyDigits strips formatting from CPF/CNPJ documents and phone numbers.
func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// documentType returns the provider-facing document type for a CPF (11
// digits) or CNPJ (14 digits).
func documentType(document string) string {
	if len(onlyDigits(document)) == 14 {
		return "CNPJ"
	}
	return "CPF"
}
