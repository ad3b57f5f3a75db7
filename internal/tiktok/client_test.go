package tiktok

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(apiURL string, fallback bool) *Client {
	return NewClient(
		config.TikTokConfig{APIBaseURL: apiURL, PageFallback: fallback},
		config.HTTPConfig{UserAgent: "test-agent"},
		testLogger(),
	)
}

func TestFetchAsset_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("url"); got != "https://www.tiktok.com/@u/video/1" {
			t.Errorf("form url = %q", got)
		}
		io.WriteString(w, `{"code": 0, "data": {"title": "t", "play": "https://cdn.example/v.mp4"}}`)
	}))
	defer srv.Close()

	asset, err := newTestClient(srv.URL, false).FetchAsset(context.Background(), "https://www.tiktok.com/@u/video/1")
	if err != nil {
		t.Fatalf("FetchAsset: %v", err)
	}
	if asset.VideoURL != "https://cdn.example/v.mp4" {
		t.Errorf("VideoURL = %q", asset.VideoURL)
	}
	if asset.Platform != domain.PlatformTikTok {
		t.Errorf("Platform = %q", asset.Platform)
	}
}

func TestFetchAsset_EnvelopeRejection(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"non-zero code", `{"code": -1, "msg": "url invalid"}`, "url invalid"},
		{"missing data", `{"code": 0}`, "lookup did not return content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, false).FetchAsset(context.Background(), "https://www.tiktok.com/@u/video/1")
			if !errors.Is(err, domain.ErrUpstreamRejected) {
				t.Fatalf("error = %v, want ErrUpstreamRejected", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not carry upstream message %q", err, tt.want)
			}
		})
	}
}

func TestFetchAsset_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadGateway, domain.ErrUpstreamTransient},
		{http.StatusTooManyRequests, domain.ErrUpstreamRejected},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := newTestClient(srv.URL, false).FetchAsset(context.Background(), "https://www.tiktok.com/@u/video/1")
		srv.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestFetchAsset_FallbackAfterLookupFailure(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code": -1, "msg": "blocked"}`)
	}))
	defer api.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head>
			<meta property="og:title" content="scraped clip"/>
			<meta property="og:video" content="https://cdn.example/page.mp4"/>
			<meta property="og:image" content="https://cdn.example/page.jpg"/>
		</head><body/></html>`)
	}))
	defer page.Close()

	asset, err := newTestClient(api.URL, true).FetchAsset(context.Background(), page.URL)
	if err != nil {
		t.Fatalf("FetchAsset: %v", err)
	}
	if asset.VideoURL != "https://cdn.example/page.mp4" {
		t.Errorf("VideoURL = %q, want scraped stream", asset.VideoURL)
	}
	if asset.CoverURL != "https://cdn.example/page.jpg" {
		t.Errorf("CoverURL = %q", asset.CoverURL)
	}
	if asset.Caption != "scraped clip" {
		t.Errorf("Caption = %q", asset.Caption)
	}
}

func TestFetchAsset_FallbackFailureKeepsLookupError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code": -1, "msg": "lookup says no"}`)
	}))
	defer api.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head></head><body>no tags</body></html>`)
	}))
	defer page.Close()

	_, err := newTestClient(api.URL, true).FetchAsset(context.Background(), page.URL)
	if !errors.Is(err, domain.ErrUpstreamRejected) || !strings.Contains(err.Error(), "lookup says no") {
		t.Fatalf("error = %v, want the original lookup rejection", err)
	}
}
