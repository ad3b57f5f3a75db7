// Package twitter resolves tweets into media assets via a vx-style
// mirror API.
package twitter

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

// Client fetches tweet payloads from the mirror API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a new mirror API client.
func NewClient(cfg config.TwitterConfig, httpCfg config.HTTPConfig) *Client {
	timeout := httpCfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		userAgent:  httpCfg.UserAgent,
	}
}

// FetchAsset retrieves the tweet by id and extracts its media.
func (c *Client) FetchAsset(ctx context.Context, tweetID string) (*domain.MediaAsset, error) {
	body, err := c.fetchPayload(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	asset, err := ExtractAsset(body)
	if err != nil {
		return nil, domain.NewResolveError(domain.PlatformTwitter, "extract media", err)
	}
	return asset, nil
}

func (c *Client) fetchPayload(ctx context.Context, tweetID string) (payload.Value, error) {
	url := fmt.Sprintf("%s/Twitter/status/%s", c.baseURL, tweetID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return payload.Value{}, domain.NewResolveError(domain.PlatformTwitter, "create request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return payload.Value{}, domain.NewResolveError(domain.PlatformTwitter, "send request",
			fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return payload.Value{}, domain.NewResolveError(domain.PlatformTwitter, "read response",
			fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return payload.Value{}, domain.NewResolveError(domain.PlatformTwitter, "fetch tweet", classifyStatus(resp.StatusCode, data))
	}

	v, err := payload.Parse(data)
	if err != nil {
		return payload.Value{}, domain.NewResolveError(domain.PlatformTwitter, "decode response",
			fmt.Errorf("%w: %v", domain.ErrUpstreamMalformed, err))
	}
	return v, nil
}

// classifyStatus maps a non-2xx mirror response to the error taxonomy.
// 5xx suggests a retry; anything else means the link should be checked.
// The mirror often carries a human-readable reason in the body.
func classifyStatus(status int, body []byte) error {
	kind := domain.ErrUpstreamRejected
	if status >= 500 {
		kind = domain.ErrUpstreamTransient
	} else if status == http.StatusNotFound {
		kind = domain.ErrNotFound
	}

	if v, err := payload.Parse(body); err == nil {
		for _, key := range []string{"detail", "message", "error"} {
			if msg := strings.TrimSpace(v.Get(key).StrOr("")); msg != "" {
				return fmt.Errorf("%w: %s", kind, msg)
			}
		}
	}
	return fmt.Errorf("%w: status %d", kind, status)
}
