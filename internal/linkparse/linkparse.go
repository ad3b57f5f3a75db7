// Package linkparse locates social-media post URLs in free text and
// derives the platform-specific resource identifier from them.
package linkparse

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"mvdan.cc/xurls/v2"

	"github.com/clipfetch/clipfetch/internal/domain"
)

// TelegramKind tags which of the two t.me URL forms matched. The two
// forms resolve differently upstream, so the tag travels with the link.
type TelegramKind string

const (
	TelegramKindUsername TelegramKind = "username"
	TelegramKindChannel  TelegramKind = "channel"
)

// TelegramRef identifies a single message on the messaging platform.
type TelegramRef struct {
	Kind      TelegramKind
	Username  string
	ChannelID int64
	MessageID int
}

// Link is a classified post URL with its extracted resource identifier.
type Link struct {
	Platform domain.Platform
	// URL is the matched URL, scheme-normalized and punctuation-trimmed.
	URL string
	// ID is the platform resource identifier. For tiktok it is the full
	// URL: the post path is opaque to this layer.
	ID string
	// Telegram is set only when Platform is PlatformTelegram.
	Telegram *TelegramRef
}

var (
	relaxed = xurls.Relaxed()

	digitsOnly = regexp.MustCompile(`^[0-9]+$`)
	alnumOnly  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	tgUsername = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// trailingPunct are prose characters that commonly trail a pasted URL but
// are not part of it.
const trailingPunct = ").,!?"

// Find scans free text for the first URL belonging to a supported
// platform and extracts its resource identifier. Returns
// domain.ErrLinkNotFound when no supported URL occurs in the text; that
// is a "did not match" signal, not a failure.
func Find(text string) (Link, error) {
	for _, raw := range relaxed.FindAllString(text, -1) {
		candidate := normalizeCandidate(raw)
		link, ok, err := classify(candidate)
		if err != nil {
			return Link{}, err
		}
		if ok {
			return link, nil
		}
	}
	return Link{}, domain.ErrLinkNotFound
}

// FindForPlatform is like Find but only accepts URLs of one platform,
// skipping matches for any other.
func FindForPlatform(text string, platform domain.Platform) (Link, error) {
	for _, raw := range relaxed.FindAllString(text, -1) {
		candidate := normalizeCandidate(raw)
		link, ok, err := classify(candidate)
		if err != nil {
			var rerr *domain.ResolveError
			if errors.As(err, &rerr) && rerr.Platform != platform {
				continue
			}
			return Link{}, err
		}
		if ok && link.Platform == platform {
			return link, nil
		}
	}
	return Link{}, domain.ErrLinkNotFound
}

func normalizeCandidate(raw string) string {
	candidate := strings.TrimRight(strings.TrimSpace(raw), trailingPunct)
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "https://" + candidate
	}
	return candidate
}

// classify matches the URL's host against the supported platforms. The
// bool result is false when the host belongs to none of them; an error
// means the host matched but no identifier could be derived.
func classify(candidate string) (Link, bool, error) {
	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return Link{}, false, nil
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		return Link{Platform: domain.PlatformTikTok, URL: candidate, ID: candidate}, true, nil
	case isTwitterHost(host):
		link, err := twitterLink(candidate, u)
		return link, err == nil, err
	case isRedditHost(host):
		link, err := redditLink(candidate, u, host)
		return link, err == nil, err
	case host == "t.me" || host == "telegram.me":
		link, err := telegramLink(candidate, u)
		return link, err == nil, err
	}
	return Link{}, false, nil
}

func isTwitterHost(host string) bool {
	for _, h := range []string{"twitter.com", "x.com"} {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func isRedditHost(host string) bool {
	if host == "redd.it" || strings.HasSuffix(host, ".redd.it") {
		return true
	}
	return host == "reddit.com" || strings.HasSuffix(host, ".reddit.com")
}

func pathParts(u *url.URL) []string {
	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// twitterLink expects a path segment "status" or "statuses" followed by a
// digits-only tweet id.
func twitterLink(candidate string, u *url.URL) (Link, error) {
	parts := pathParts(u)
	for i, part := range parts {
		if lower := strings.ToLower(part); (lower == "status" || lower == "statuses") && i+1 < len(parts) {
			id := stripIDSuffix(parts[i+1])
			if !digitsOnly.MatchString(id) {
				return Link{}, domain.NewResolveError(domain.PlatformTwitter, "parse link",
					fmt.Errorf("tweet id %q is not numeric: %w", id, domain.ErrResolution))
			}
			return Link{Platform: domain.PlatformTwitter, URL: candidate, ID: id}, nil
		}
	}
	return Link{}, domain.NewResolveError(domain.PlatformTwitter, "parse link",
		fmt.Errorf("no status segment in %q: %w", u.Path, domain.ErrResolution))
}

// redditLink accepts the four post id shapes: redd.it short links,
// /comments/<id>, gallery/<id> and poll/<id> (plus a lone-segment path on
// the short domain style).
func redditLink(candidate string, u *url.URL, host string) (Link, error) {
	parts := pathParts(u)

	var id string
	if host == "redd.it" || strings.HasSuffix(host, ".redd.it") {
		if len(parts) > 0 {
			id = parts[0]
		}
	} else {
		for i, part := range parts {
			if strings.EqualFold(part, "comments") && i+1 < len(parts) {
				id = parts[i+1]
				break
			}
		}
		if id == "" && len(parts) >= 2 {
			switch strings.ToLower(parts[0]) {
			case "gallery", "poll":
				id = parts[1]
			}
		}
		if id == "" && len(parts) == 1 {
			id = parts[0]
		}
	}

	id = stripIDSuffix(id)
	if id == "" || !alnumOnly.MatchString(id) {
		return Link{}, domain.NewResolveError(domain.PlatformReddit, "parse link",
			fmt.Errorf("no post id in %q: %w", u.Path, domain.ErrResolution))
	}
	return Link{Platform: domain.PlatformReddit, URL: candidate, ID: id}, nil
}

// telegramLink accepts t.me/<username>/<msg> and t.me/c/<channel>/<msg>.
func telegramLink(candidate string, u *url.URL) (Link, error) {
	parts := pathParts(u)

	fail := func(reason string) (Link, error) {
		return Link{}, domain.NewResolveError(domain.PlatformTelegram, "parse link",
			fmt.Errorf("%s in %q: %w", reason, u.Path, domain.ErrResolution))
	}

	if len(parts) == 3 && strings.EqualFold(parts[0], "c") {
		channelID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fail("channel id is not numeric")
		}
		messageID, err := strconv.Atoi(stripIDSuffix(parts[2]))
		if err != nil {
			return fail("message id is not numeric")
		}
		return Link{
			Platform: domain.PlatformTelegram,
			URL:      candidate,
			ID:       parts[1] + "/" + parts[2],
			Telegram: &TelegramRef{Kind: TelegramKindChannel, ChannelID: channelID, MessageID: messageID},
		}, nil
	}

	if len(parts) == 2 && tgUsername.MatchString(parts[0]) {
		messageID, err := strconv.Atoi(stripIDSuffix(parts[1]))
		if err != nil {
			return fail("message id is not numeric")
		}
		return Link{
			Platform: domain.PlatformTelegram,
			URL:      candidate,
			ID:       parts[0] + "/" + parts[1],
			Telegram: &TelegramRef{Kind: TelegramKindUsername, Username: parts[0], MessageID: messageID},
		}, nil
	}

	return fail("unrecognized message path")
}

// stripIDSuffix drops query or fragment leftovers glued to a path
// segment by sloppy pasting.
func stripIDSuffix(id string) string {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	if i := strings.IndexByte(id, '#'); i >= 0 {
		id = id[:i]
	}
	return id
}
