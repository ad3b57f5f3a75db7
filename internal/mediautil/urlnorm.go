// Package mediautil holds the shared URL plumbing every adapter applies
// before an asset leaves its extractor: normalization, order-preserving
// deduplication, video variant selection and album batching.
package mediautil

import "strings"

var imageSuffixes = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

var videoSuffixes = []string{".mp4", ".mov", ".m4v", ".webm"}

// videoHosts are domains that only ever serve video streams; a URL on one
// of these counts as video regardless of its suffix.
var videoHosts = []string{"v.redd.it", "video.twimg.com"}

// NormalizeURL rewrites protocol-relative URLs to https, unescapes the
// HTML-entity ampersands some listing APIs leave in, and rejects anything
// that is not http(s) afterwards. The empty string means "rejected".
func NormalizeURL(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return ""
	}
	candidate = strings.ReplaceAll(candidate, "&amp;", "&")
	if strings.HasPrefix(candidate, "//") {
		candidate = "https:" + candidate
	}
	if strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://") {
		return candidate
	}
	return ""
}

// Dedup removes exact duplicates keeping the first occurrence. Comparison
// is case-sensitive; media CDNs treat paths as case-significant.
func Dedup(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// strippedPath lowercases the URL and drops query and fragment so suffix
// checks see the real path.
func strippedPath(url string) string {
	s := strings.ToLower(url)
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	return s
}

// IsImageURL reports whether the URL path ends in a known image suffix.
func IsImageURL(url string) bool {
	p := strippedPath(url)
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

// IsVideoURL reports whether the URL looks like a video: a known video
// file suffix or a known video-only host.
func IsVideoURL(url string) bool {
	p := strippedPath(url)
	for _, suffix := range videoSuffixes {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	for _, host := range videoHosts {
		if strings.Contains(p, host) {
			return true
		}
	}
	return false
}
