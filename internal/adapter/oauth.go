package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/escolahub/payments-gateway-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// refreshMargin is how long before the real expiry a cached token is
// treated as expiring, so a fresh exchange happens before the boundary.
const refreshMargin = 60 * time.Second

var (
	refreshObserverMu sync.RWMutex
	refreshObserver   func(provider string)
)

// SetTokenRefreshObserver registers a callback invoked after every
// successful OAuth2 token exchange, keyed by provider. Used to feed the
// token-refresh metric without coupling adapters to the metrics registry.
func SetTokenRefreshObserver(fn func(provider string)) {
	refreshObserverMu.Lock()
	refreshObserver = fn
	refreshObserverMu.Unlock()
}

func notifyTokenRefresh(provider domain.Provider) {
	refreshObserverMu.RLock()
	fn := refreshObserver
	refreshObserverMu.RUnlock()
	if fn != nil {
		fn(string(provider))
	}
}

// tokenSource caches one OAuth2 client-credentials token per adapter
// instance. The cache is never shared across organizations; each adapter
// holds its own token lifecycle. Concurrent callers share a single
// in-flight exchange via singleflight.
type tokenSource struct {
	provider     domain.Provider
	tokenURL     string
	clientID     string
	clientSecret string
	scopes       []string
	httpClient   *http.Client
	logger       *zap.Logger

	now func() time.Time

	mu        sync.Mutex
	group     singleflight.Group
	token     string
	expiresAt time.Time
}

func newTokenSource(provider domain.Provider, tokenURL, clientID, clientSecret string, scopes []string, httpClient *http.Client, logger *zap.Logger) *tokenSource {
	return &tokenSource{
		provider:     provider,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       scopes,
		httpClient:   httpClient,
		logger:       logger,
		now:          time.Now,
	}
}

// Token returns a valid access token, exchanging credentials when there is
// no cached token or the cached one is past expiresAt minus the refresh
// margin.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := t.cached(); ok {
		return tok, nil
	}

	v, err, _ := t.group.Do("token", func() (any, error) {
		// Another caller may have refreshed while we waited on the flight.
		if tok, ok := t.cached(); ok {
			return tok, nil
		}
		return t.exchange(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (t *tokenSource) cached() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" && t.now().Before(t.expiresAt.Add(-refreshMargin)) {
		return t.token, true
	}
	return "", false
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (t *tokenSource) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	if len(t.scopes) > 0 {
		form.Set("scope", strings.Join(t.scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.NewAdapterError(t.provider, fmt.Sprintf("build token request: %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.clientID, t.clientSecret)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", domain.NewAdapterError(t.provider, fmt.Sprintf("token exchange: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewAdapterError(t.provider, fmt.Sprintf("read token response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewHTTPError(t.provider, "token exchange failed", resp.StatusCode, string(raw))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", domain.NewAdapterError(t.provider, fmt.Sprintf("decode token response: %v", err))
	}
	if tr.AccessToken == "" {
		return "", domain.NewAdapterError(t.provider, "token exchange returned no access_token")
	}

	expiresAt := t.resolveExpiry(tr)

	t.mu.Lock()
	t.token = tr.AccessToken
	t.expiresAt = expiresAt
	t.mu.Unlock()

	t.logger.Debug("oauth token refreshed",
		zap.String("provider", string(t.provider)),
		zap.Time("expires_at", expiresAt),
	)
	notifyTokenRefresh(t.provider)
	return tr.AccessToken, nil
}

// resolveExpiry prefers expires_in; when the endpoint omits it and the
// access token is a JWT, the exp claim is read without verifying the
// signature (only the expiry matters here, the token itself is opaque to
// us). Falls back to a conservative 5 minutes.
func (t *tokenSource) resolveExpiry(tr tokenResponse) time.Time {
	if tr.ExpiresIn > 0 {
		return t.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tr.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return t.now().Add(5 * time.Minute)
}

// bearerAuth builds an authFunc that resolves a token from ts per request.
func bearerAuth(ts *tokenSource) authFunc {
	return func(ctx context.Context, req *http.Request) error {
		token, err := ts.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// staticBearerAuth attaches a fixed access token.
func staticBearerAuth(token string) authFunc {
	return func(_ context.Context, req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// staticHeaderAuth attaches a fixed API key under a provider-chosen header.
func staticHeaderAuth(header, value string) authFunc {
	return func(_ context.Context, req *http.Request) error {
		req.Header.Set(header, value)
		return nil
	}
}

// basicAuth attaches HTTP basic credentials.
func basicAuth(user, pass string) authFunc {
	return func(_ context.Context, req *http.Request) error {
		req.SetBasicAuth(user, pass)
		return nil
	}
}
