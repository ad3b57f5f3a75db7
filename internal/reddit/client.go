// Package reddit resolves link-aggregation posts into media assets via
// the public JSON listing, optionally authenticated through an OAuth2
// password-grant token manager.
package reddit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/payload"
)

// Client fetches post listings.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	// tokens is nil when the unauthenticated listing is used.
	tokens *TokenManager
}

// NewClient creates a listing client. When cfg.UseOAuth is set the client
// authenticates every request through a shared token manager.
func NewClient(cfg config.RedditConfig, httpCfg config.HTTPConfig) *Client {
	timeout := httpCfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		userAgent:  httpCfg.UserAgent,
	}
	if cfg.UseOAuth {
		c.tokens = NewTokenManager(cfg, httpCfg)
	}
	return c
}

// FetchAsset retrieves the post by id and extracts its media.
func (c *Client) FetchAsset(ctx context.Context, postID string) (*domain.MediaAsset, error) {
	root, err := c.fetchListing(ctx, postID)
	if err != nil {
		return nil, err
	}
	asset, err := ExtractAsset(root)
	if err != nil {
		return nil, domain.NewResolveError(domain.PlatformReddit, "extract media", err)
	}
	return asset, nil
}

// fetchListing issues the listing request. A 401 on the authenticated
// path invalidates the cached token and retries exactly once with a
// forced refresh; a second 401 fails with ErrAuthenticationFailed.
func (c *Client) fetchListing(ctx context.Context, postID string) (payload.Value, error) {
	body, status, err := c.doListing(ctx, postID, false)
	if err != nil {
		return payload.Value{}, err
	}

	if status == http.StatusUnauthorized && c.tokens != nil {
		c.tokens.Invalidate()
		body, status, err = c.doListing(ctx, postID, true)
		if err != nil {
			return payload.Value{}, err
		}
		if status == http.StatusUnauthorized {
			return payload.Value{}, domain.NewResolveError(domain.PlatformReddit, "fetch post",
				fmt.Errorf("%w: credentials rejected twice", domain.ErrAuthenticationFailed))
		}
	}

	if status < 200 || status >= 300 {
		return payload.Value{}, domain.NewResolveError(domain.PlatformReddit, "fetch post", classifyStatus(status))
	}

	v, err := payload.Parse(body)
	if err != nil {
		return payload.Value{}, domain.NewResolveError(domain.PlatformReddit, "decode response",
			fmt.Errorf("%w: %v", domain.ErrUpstreamMalformed, err))
	}
	return v, nil
}

func (c *Client) doListing(ctx context.Context, postID string, forceRefresh bool) ([]byte, int, error) {
	url := fmt.Sprintf("%s/comments/%s.json?raw_json=1", c.baseURL, postID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, 0, domain.NewResolveError(domain.PlatformReddit, "create request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx, forceRefresh)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, domain.NewResolveError(domain.PlatformReddit, "send request",
			fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, domain.NewResolveError(domain.PlatformReddit, "read response",
			fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err))
	}
	return body, resp.StatusCode, nil
}

func classifyStatus(status int) error {
	switch {
	case status >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamTransient, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", domain.ErrNotFound, status)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", domain.ErrAccessDenied, status)
	default:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamRejected, status)
	}
}
