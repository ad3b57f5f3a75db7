package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
)

const maxFileBytes = 50 * 1024 * 1024

// HTTPDownloader implements Downloader over plain GET requests with
// bounded retries on transient failures.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	retry     RetryConfig
}

// NewHTTPDownloader creates a downloader sharing the outbound HTTP
// settings.
func NewHTTPDownloader(httpCfg config.HTTPConfig) *HTTPDownloader {
	timeout := httpCfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDownloader{
		client:    &http.Client{Timeout: timeout},
		userAgent: httpCfg.UserAgent,
		retry:     DefaultRetryConfig(),
	}
}

// Fetch downloads the URL into memory. Rate limits and server errors
// are retried with backoff; client rejections are not.
func (d *HTTPDownloader) Fetch(ctx context.Context, url string) (*File, error) {
	return Retry(ctx, d.retry, func() (*File, error) {
		return d.fetchOnce(ctx, url)
	})
}

func (d *HTTPDownloader) fetchOnce(ctx context.Context, url string) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "image/*,video/*;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamTransient, resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: status %d", domain.ErrAccessDenied, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamRejected, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamTransient, err)
	}
	if len(data) > maxFileBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrUpstreamRejected, maxFileBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	return &File{
		Data:        data,
		Name:        BuildFileName(url, contentType, "photo", 1),
		ContentType: contentType,
	}, nil
}
