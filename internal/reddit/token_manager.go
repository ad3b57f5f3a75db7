package reddit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/payload"
)

// refreshSkew is subtracted from the upstream-declared token lifetime so
// a token is never used right at its expiry.
const refreshSkew = 30 * time.Second

// defaultExpirySeconds is assumed when the token endpoint reports a
// non-numeric (or missing) expires_in.
const defaultExpirySeconds = 3600

// credential is the cached bearer token. It is replaced wholesale on
// refresh, never mutated in place.
type credential struct {
	token     string
	expiresAt time.Time
}

// TokenManager owns the process-wide cached bearer credential for the
// listing API's OAuth2 password grant. Refreshes are serialized: under
// concurrent callers at most one token-exchange request is in flight and
// every waiter shares its result. Readers holding a still-valid token
// never touch the lock.
type TokenManager struct {
	cfg       config.RedditConfig
	hc        *http.Client
	userAgent string

	cur atomic.Pointer[credential]
	mu  sync.Mutex

	// now is swapped in tests.
	now func() time.Time
}

// NewTokenManager creates a token manager for the configured credential set.
func NewTokenManager(cfg config.RedditConfig, httpCfg config.HTTPConfig) *TokenManager {
	timeout := httpCfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &TokenManager{
		cfg:       cfg,
		hc:        &http.Client{Timeout: timeout},
		userAgent: httpCfg.UserAgent,
		now:       time.Now,
	}
}

// Token returns a bearer token, refreshing when the cache is empty,
// expired, or forceRefresh is set.
func (m *TokenManager) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if !forceRefresh {
		if c := m.cur.Load(); c != nil && m.now().Before(c.expiresAt) {
			return c.token, nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A waiter that queued behind a refresh finds a fresh token here and
	// must not issue a second exchange.
	if !forceRefresh {
		if c := m.cur.Load(); c != nil && m.now().Before(c.expiresAt) {
			return c.token, nil
		}
	}

	c, err := m.exchange(ctx)
	if err != nil {
		return "", err
	}
	m.cur.Store(c)
	return c.token, nil
}

// Invalidate clears the cached token unconditionally.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur.Store(nil)
}

// exchange performs the password-grant token call. Caller holds the lock.
func (m *TokenManager) exchange(ctx context.Context) (*credential, error) {
	if !m.cfg.HasCredentials() {
		return nil, domain.NewResolveError(domain.PlatformReddit, "acquire token", domain.ErrCredentialsMissing)
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", m.cfg.Username)
	form.Set("password", m.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, "POST", m.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, m.acquisitionError(fmt.Errorf("create token request: %v", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}
	req.SetBasicAuth(m.cfg.ClientID, m.cfg.ClientSecret)

	resp, err := m.hc.Do(req)
	if err != nil {
		return nil, m.acquisitionError(fmt.Errorf("token request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, m.acquisitionError(fmt.Errorf("read token response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, m.acquisitionError(fmt.Errorf("token endpoint status %d", resp.StatusCode))
	}

	v, err := payload.Parse(body)
	if err != nil {
		return nil, m.acquisitionError(fmt.Errorf("decode token response: %v", err))
	}

	token := strings.TrimSpace(v.Get("access_token").StrOr(""))
	if token == "" {
		return nil, m.acquisitionError(fmt.Errorf("token response missing access_token"))
	}

	// A non-numeric expires_in is tolerated rather than fatal.
	expiresIn := v.Get("expires_in").IntOr(defaultExpirySeconds)
	lifetime := time.Duration(expiresIn)*time.Second - refreshSkew
	if lifetime < 0 {
		lifetime = 0
	}

	return &credential{token: token, expiresAt: m.now().Add(lifetime)}, nil
}

func (m *TokenManager) acquisitionError(cause error) error {
	return domain.NewResolveError(domain.PlatformReddit, "acquire token",
		fmt.Errorf("%w: %v", domain.ErrTokenAcquisition, cause))
}
