package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func newTokenServer(t *testing.T, exchanges *atomic.Int64, expiresIn int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "client_id" || pass != "client_secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		exchanges.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok_abc",
			"token_type":   "Bearer",
			"expires_in":   expiresIn,
		})
	}))
}

func TestTokenSource_SingleExchangeUnderConcurrency(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges, 3600)
	defer srv.Close()

	ts := newTokenSource(domain.ProviderInter, srv.URL, "client_id", "client_secret", nil, http.DefaultClient, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := ts.Token(context.Background())
			if err != nil {
				t.Errorf("Token returned error: %v", err)
				return
			}
			if tok != "tok_abc" {
				t.Errorf("token = %q, want tok_abc", tok)
			}
		}()
	}
	wg.Wait()

	if n := exchanges.Load(); n != 1 {
		t.Errorf("token exchanges = %d, want 1", n)
	}
}

func TestTokenSource_RefreshesBeforeExpiry(t *testing.T) {
	var exchanges atomic.Int64
	srv := newTokenServer(t, &exchanges, 3600)
	defer srv.Close()

	now := time.Now()
	ts := newTokenSource(domain.ProviderBB, srv.URL, "client_id", "client_secret", nil, http.DefaultClient, zap.NewNop())
	ts.now = func() time.Time { return now }

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("first Token: %v", err)
	}

	// Still well within the token's lifetime: cached.
	now = now.Add(30 * time.Minute)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("cached Token: %v", err)
	}
	if n := exchanges.Load(); n != 1 {
		t.Fatalf("exchanges after cached read = %d, want 1", n)
	}

	// Inside the refresh margin (60s before expiry): a new exchange happens.
	now = now.Add(30*time.Minute - 30*time.Second)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("refresh Token: %v", err)
	}
	if n := exchanges.Load(); n != 2 {
		t.Errorf("exchanges after margin crossed = %d, want 2", n)
	}
}

func TestTokenSource_ExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	ts := newTokenSource(domain.ProviderItau, srv.URL, "bad", "creds", nil, http.DefaultClient, zap.NewNop())

	_, err := ts.Token(context.Background())
	if err == nil {
		t.Fatal("expected token exchange failure")
	}
	var ae *domain.AdapterError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *domain.AdapterError, got %T", err)
	}
	if ae.Provider != "itau" {
		t.Errorf("provider = %q, want itau", ae.Provider)
	}
	if ae.HTTPStatus != http.StatusBadRequest {
		t.Errorf("http status = %d, want 400", ae.HTTPStatus)
	}
}

func TestResolveExpiry_PrefersExpiresIn(t *testing.T) {
	now := time.Now()
	ts := &tokenSource{now: func() time.Time { return now }}

	got := ts.resolveExpiry(tokenResponse{AccessToken: "x", ExpiresIn: 900})
	if want := now.Add(900 * time.Second); !got.Equal(want) {
		t.Errorf("expiry = %v, want %v", got, want)
	}
}

func TestResolveExpiry_FallsBackToJWTExp(t *testing.T) {
	now := time.Now()
	exp := now.Add(42 * time.Minute).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}

	ts := &tokenSource{now: func() time.Time { return now }}
	got := ts.resolveExpiry(tokenResponse{AccessToken: signed})
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v (from exp claim)", got, exp)
	}
}

func TestResolveExpiry_OpaqueTokenDefaultsToFiveMinutes(t *testing.T) {
	now := time.Now()
	ts := &tokenSource{now: func() time.Time { return now }}

	got := ts.resolveExpiry(tokenResponse{AccessToken: "opaque-token"})
	if want := now.Add(5 * time.Minute); !got.Equal(want) {
		t.Errorf("expiry = %v, want %v", got, want)
	}
}
