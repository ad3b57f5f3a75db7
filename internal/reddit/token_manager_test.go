package reddit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
)

func testCredentials(tokenURL string) config.RedditConfig {
	return config.RedditConfig{
		APIBaseURL:   "https://oauth.example",
		TokenURL:     tokenURL,
		ClientID:     "cid",
		ClientSecret: "secret",
		Username:     "user",
		Password:     "pass",
		UseOAuth:     true,
	}
}

func TestToken_ExchangeAndCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "password" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		if r.Form.Get("username") != "user" || r.Form.Get("password") != "pass" {
			t.Errorf("credentials not forwarded: %v", r.Form)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "secret" {
			t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "tok-1", "expires_in": 3600}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(srv.URL), config.HTTPConfig{})

	got, err := m.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "tok-1" {
		t.Fatalf("token = %q, want tok-1", got)
	}

	// Second call is served from cache.
	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("exchange calls = %d, want 1", n)
	}
}

func TestToken_ConcurrentCallersShareOneExchange(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond) // widen the race window
		w.Write([]byte(`{"access_token": "shared", "expires_in": 3600}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(srv.URL), config.HTTPConfig{})

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.Token(context.Background(), false)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if tokens[i] != "shared" {
			t.Errorf("caller %d token = %q", i, tokens[i])
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("exchange calls = %d, want exactly 1", n)
	}
}

func TestToken_ExpiryHonorsSafetyWindow(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"access_token": "short", "expires_in": 60}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(srv.URL), config.HTTPConfig{})

	base := time.Now()
	m.now = func() time.Time { return base }
	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 29s in: still inside the 60-30 lifetime, cache hit.
	m.now = func() time.Time { return base.Add(29 * time.Second) }
	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("exchange calls = %d, want 1", n)
	}

	// 31s in: the safety window has eaten the remaining lifetime.
	m.now = func() time.Time { return base.Add(31 * time.Second) }
	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("exchange calls = %d, want 2", n)
	}
}

func TestToken_NonNumericExpiresInDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "tok", "expires_in": "soon"}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(srv.URL), config.HTTPConfig{})
	base := time.Now()
	m.now = func() time.Time { return base }

	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := m.cur.Load()
	if c == nil {
		t.Fatal("no cached credential")
	}
	want := base.Add(defaultExpirySeconds*time.Second - refreshSkew)
	if !c.expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", c.expiresAt, want)
	}
}

func TestToken_FailureModes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `boom`},
		{name: "rejected", status: http.StatusUnauthorized, body: `{"error": "invalid_grant"}`},
		{name: "malformed body", status: http.StatusOK, body: `not json`},
		{name: "missing token field", status: http.StatusOK, body: `{"expires_in": 3600}`},
		{name: "empty token field", status: http.StatusOK, body: `{"access_token": "  "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m := NewTokenManager(testCredentials(srv.URL), config.HTTPConfig{})
			if _, err := m.Token(context.Background(), false); !errors.Is(err, domain.ErrTokenAcquisition) {
				t.Errorf("err = %v, want ErrTokenAcquisition", err)
			}
		})
	}
}

func TestToken_MissingCredentials(t *testing.T) {
	cfg := testCredentials("https://token.example")
	cfg.Password = ""
	m := NewTokenManager(cfg, config.HTTPConfig{})

	_, err := m.Token(context.Background(), false)
	if !errors.Is(err, domain.ErrCredentialsMissing) {
		t.Errorf("err = %v, want ErrCredentialsMissing", err)
	}
	if errors.Is(err, domain.ErrTokenAcquisition) {
		t.Error("configuration failure must be distinct from acquisition failure")
	}
}

func TestInvalidate(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"access_token": "tok", "expires_in": 3600}`))
	}))
	defer srv.Close()

	m := NewTokenManager(testCredentials(srv.URL), config.HTTPConfig{})
	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Invalidate()

	if _, err := m.Token(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("exchange calls = %d, want 2 after invalidate", n)
	}
}
