// Package tiktok resolves short-form video posts into media assets via a
// tikwm-style lookup API, with an optional page-scrape fallback.
package tiktok

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/payload"
)

// Client fetches post data from the lookup API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	fallback   *PageExtractor
	logger     *slog.Logger
}

// NewClient creates a lookup API client. When cfg.PageFallback is set a
// failed lookup falls through to scraping the post page itself.
func NewClient(cfg config.TikTokConfig, httpCfg config.HTTPConfig, logger *slog.Logger) *Client {
	timeout := httpCfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/") + "/",
		userAgent:  httpCfg.UserAgent,
		logger:     logger,
	}
	if cfg.PageFallback {
		c.fallback = NewPageExtractor(httpCfg)
	}
	return c
}

// FetchAsset resolves the post URL into a media asset. The lookup API is
// tried first; when it fails and the page fallback is enabled, the post
// page itself is scraped before giving up.
func (c *Client) FetchAsset(ctx context.Context, postURL string) (*domain.MediaAsset, error) {
	data, err := c.lookup(ctx, postURL)
	if err == nil {
		asset, xerr := ExtractAsset(data)
		if xerr == nil {
			return asset, nil
		}
		err = domain.NewResolveError(domain.PlatformTikTok, "extract media", xerr)
	}

	if c.fallback != nil {
		asset, ferr := c.fallback.Fetch(ctx, postURL)
		if ferr == nil {
			return asset, nil
		}
		c.logger.Warn("page fallback failed", "url", postURL, "error", ferr)
	}
	return nil, err
}

// lookup posts the target URL to the API and unwraps the {code, msg,
// data} envelope. A non-zero code or missing data object is an in-band
// upstream rejection carrying the upstream message.
func (c *Client) lookup(ctx context.Context, postURL string) (payload.Value, error) {
	form := url.Values{}
	form.Set("url", postURL)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return payload.Value{}, domain.NewResolveError(domain.PlatformTikTok, "create request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return payload.Value{}, domain.NewResolveError(domain.PlatformTikTok, "send request",
			fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return payload.Value{}, domain.NewResolveError(domain.PlatformTikTok, "read response",
			fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := domain.ErrUpstreamRejected
		if resp.StatusCode >= 500 {
			kind = domain.ErrUpstreamTransient
		}
		return payload.Value{}, domain.NewResolveError(domain.PlatformTikTok, "lookup post",
			fmt.Errorf("%w: status %d", kind, resp.StatusCode))
	}

	v, err := payload.Parse(body)
	if err != nil {
		return payload.Value{}, domain.NewResolveError(domain.PlatformTikTok, "decode response",
			fmt.Errorf("%w: %v", domain.ErrUpstreamMalformed, err))
	}

	if v.Get("code").IntOr(-1) != 0 || v.Get("data").IsNil() {
		msg := strings.TrimSpace(v.Get("msg").StrOr(""))
		if msg == "" {
			msg = "lookup did not return content"
		}
		return payload.Value{}, domain.NewResolveError(domain.PlatformTikTok, "lookup post",
			fmt.Errorf("%w: %s", domain.ErrUpstreamRejected, msg))
	}

	return v.Get("data"), nil
}
