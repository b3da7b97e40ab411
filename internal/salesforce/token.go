package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"rfpsonar/internal/config"
	"rfpsonar/internal/logger"
)

// Token errors.
var (
	ErrNoCredentials   = errors.New("no record store credentials configured")
	ErrNoTokenReceived = errors.New("no access token in refresh response")
)

// TokenManager owns the cached bearer credential for the record store. The
// token is refreshed before its computed expiry minus a safety margin; a
// refresh in progress is awaited by concurrent callers, never duplicated.
// When refresh-token credentials are absent it falls back to the legacy
// static access key with a one-time warning.
type TokenManager struct {
	httpClient *http.Client
	tokenURL   string
	auth       config.ResolvedAuth
	lifetime   time.Duration
	margin     time.Duration
	logger     *logger.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time

	legacyWarn sync.Once
}

// NewTokenManager creates a token manager from the store configuration,
// resolving credentials from the environment once at construction.
func NewTokenManager(cfg *config.RecordStoreConfig, log *logger.Logger) *TokenManager {
	return &TokenManager{
		httpClient: &http.Client{Timeout: cfg.GetRequestTimeout()},
		tokenURL:   cfg.TokenURL,
		auth:       cfg.Auth.Resolve(),
		lifetime:   cfg.GetTokenLifetime(),
		margin:     cfg.GetTokenSafetyMargin(),
		logger:     log,
	}
}

// Token returns a valid bearer credential, refreshing if the cached one is
// within the safety margin of expiry. A refresh failure is fatal for the
// caller's run: there is no stale-token fallback.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if !m.auth.HasOAuth() {
		if m.auth.HasLegacyKey() {
			m.legacyWarn.Do(func() {
				m.logger.Warn("refresh-token auth not configured, using legacy static access key")
			})

			return m.auth.LegacyKey, nil
		}

		return "", ErrNoCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Until(m.expiry) > m.margin {
		return m.token, nil
	}

	return m.refreshLocked(ctx)
}

// Invalidate drops the cached token so the next Token call refreshes.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = ""
	m.expiry = time.Time{}
}

// refreshLocked exchanges the refresh token for a new access token. Callers
// must hold m.mu.
func (m *TokenManager) refreshLocked(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", m.auth.ConsumerKey)
	form.Set("client_secret", m.auth.ConsumerSecret)
	form.Set("refresh_token", m.auth.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d: %s", ErrUnexpectedStatusCode, resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
		TokenType   string `json:"token_type"`
	}

	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", ErrNoTokenReceived
	}

	m.token = tokenResp.AccessToken
	m.expiry = time.Now().Add(m.lifetime)
	m.logger.Info("record store token refreshed", "expires_at", m.expiry.Format(time.RFC3339))

	return m.token, nil
}
