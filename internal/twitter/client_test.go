package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(
		config.TwitterConfig{APIBaseURL: baseURL},
		config.HTTPConfig{UserAgent: "test-agent"},
	)
}

func TestFetchAsset_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Twitter/status/123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"tweet": {
				"full_text": "hi",
				"media": [{"type": "photo", "url": "https://pbs.twimg.com/p.jpg"}]
			}
		}`))
	}))
	defer srv.Close()

	asset, err := newTestClient(srv.URL).FetchAsset(context.Background(), "123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(asset.Photos) != 1 || asset.Photos[0] != "https://pbs.twimg.com/p.jpg" {
		t.Errorf("photos = %v", asset.Photos)
	}
}

func TestFetchAsset_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind error
	}{
		{
			name:     "server error is transient",
			status:   http.StatusBadGateway,
			body:     `upstream exploded`,
			wantKind: domain.ErrUpstreamTransient,
		},
		{
			name:     "not found",
			status:   http.StatusNotFound,
			body:     `{"detail": "no such tweet"}`,
			wantKind: domain.ErrNotFound,
		},
		{
			name:     "client error is rejected",
			status:   http.StatusBadRequest,
			body:     `{"error": "bad id"}`,
			wantKind: domain.ErrUpstreamRejected,
		},
		{
			name:     "malformed body",
			status:   http.StatusOK,
			body:     `<!doctype html>`,
			wantKind: domain.ErrUpstreamMalformed,
		},
		{
			name:     "parsed but empty",
			status:   http.StatusOK,
			body:     `{"tweet": {}}`,
			wantKind: domain.ErrNoMedia,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).FetchAsset(context.Background(), "123")
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("err = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestFetchAsset_ConnectFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := newTestClient(srv.URL).FetchAsset(context.Background(), "123")
	if !errors.Is(err, domain.ErrUpstreamTransient) {
		t.Errorf("err = %v, want ErrUpstreamTransient", err)
	}
}

func TestFetchAsset_UpstreamMessageSurvives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "tweet is age restricted"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchAsset(context.Background(), "123")
	if err == nil || !errors.Is(err, domain.ErrUpstreamRejected) {
		t.Fatalf("err = %v, want ErrUpstreamRejected", err)
	}
	var rerr *domain.ResolveError
	if !errors.As(err, &rerr) {
		t.Fatalf("err %v is not a ResolveError", err)
	}
	if want := "tweet is age restricted"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not carry upstream message %q", err.Error(), want)
	}
}
