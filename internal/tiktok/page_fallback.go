package tiktok

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/mediautil"
)

// PageExtractor is the general-purpose fallback: it fetches the post
// page itself and reads the OpenGraph media tags. Its failure messages
// are normalized into the shared error taxonomy by substring.
type PageExtractor struct {
	httpClient *http.Client
	userAgent  string
}

// NewPageExtractor creates a page extractor sharing the outbound HTTP
// settings.
func NewPageExtractor(httpCfg config.HTTPConfig) *PageExtractor {
	timeout := httpCfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &PageExtractor{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  httpCfg.UserAgent,
	}
}

// Fetch scrapes the post page for og:video / og:image references.
func (p *PageExtractor) Fetch(ctx context.Context, postURL string) (*domain.MediaAsset, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", postURL, nil)
	if err != nil {
		return nil, domain.NewResolveError(domain.PlatformTikTok, "create page request", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewResolveError(domain.PlatformTikTok, "fetch page", ClassifyExtractorMessage(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewResolveError(domain.PlatformTikTok, "fetch page",
			ClassifyExtractorMessage(fmt.Sprintf("status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.NewResolveError(domain.PlatformTikTok, "parse page",
			fmt.Errorf("%w: %v", domain.ErrUpstreamMalformed, err))
	}

	asset := &domain.MediaAsset{
		Platform: domain.PlatformTikTok,
		Caption:  strings.TrimSpace(metaContent(doc, "og:title", "og:description")),
	}

	if video := mediautil.NormalizeURL(metaContent(doc, "og:video", "og:video:secure_url", "og:video:url")); video != "" {
		asset.VideoURL = video
		asset.CoverURL = mediautil.NormalizeURL(metaContent(doc, "og:image"))
	} else if image := mediautil.NormalizeURL(metaContent(doc, "og:image")); image != "" {
		asset.Photos = []string{image}
	}

	if !asset.HasMedia() {
		return nil, domain.NewResolveError(domain.PlatformTikTok, "parse page", domain.ErrNoMedia)
	}
	return asset, nil
}

func metaContent(doc *goquery.Document, properties ...string) string {
	for _, prop := range properties {
		sel := fmt.Sprintf(`meta[property=%q]`, prop)
		if content, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

// ClassifyExtractorMessage maps an extractor failure message onto the
// error taxonomy by substring: timeouts are transient, 404s are
// not-found, private/login walls are access-denied, everything else is
// a rejection.
func ClassifyExtractorMessage(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timed out") || strings.Contains(lower, "timeout"):
		return fmt.Errorf("%w: %s", domain.ErrUpstreamTransient, msg)
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found"):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case strings.Contains(lower, "private") || strings.Contains(lower, "login"):
		return fmt.Errorf("%w: %s", domain.ErrAccessDenied, msg)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUpstreamRejected, msg)
	}
}
