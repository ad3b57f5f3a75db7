package twitter

import (
	"strings"

	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/mediautil"
	"github.com/clipfetch/clipfetch/internal/payload"
)

// ExtractAsset reduces a tweet payload to a media asset. The mirror
// wraps the tweet in a {"tweet": {...}} envelope on some deployments and
// returns it bare on others; both shapes are accepted. A payload with no
// usable photos or video fails with ErrNoMedia.
func ExtractAsset(root payload.Value) (asset *domain.MediaAsset, err error) {
	// Shape surprises deep in the traversal must not escape as panics.
	defer func() {
		if r := recover(); r != nil {
			asset, err = nil, domain.ErrNoMedia
		}
	}()

	tweet := root.Get("tweet")
	if tweet.IsNil() {
		tweet = root
	}

	photos := extractPhotos(tweet, root)
	videoURL := extractVideo(tweet, root)

	if len(photos) == 0 && videoURL == "" {
		return nil, domain.ErrNoMedia
	}

	return &domain.MediaAsset{
		Platform: domain.PlatformTwitter,
		Caption:  extractCaption(tweet, root),
		Photos:   photos,
		VideoURL: videoURL,
	}, nil
}

func extractCaption(tweet, root payload.Value) string {
	for _, field := range []string{"full_text", "text", "description", "content"} {
		for _, src := range []payload.Value{tweet, root} {
			if s := strings.TrimSpace(src.Get(field).StrOr("")); s != "" {
				return s
			}
		}
	}
	return ""
}

// extractPhotos prefers the typed media array filtered to photos and
// falls back to the flat URL list with video URLs screened out.
func extractPhotos(tweet, root payload.Value) []string {
	var photos []string

	for _, entry := range tweet.Get("media").Items() {
		if !strings.EqualFold(entry.Get("type").StrOr(""), "photo") {
			continue
		}
		raw := entry.First("url", "media_url_https", "media_url").StrOr("")
		if u := mediautil.NormalizeURL(raw); u != "" {
			photos = append(photos, u)
		}
	}

	if len(photos) == 0 {
		flat := root.Get("mediaURLs")
		if flat.IsNil() {
			flat = tweet.Get("mediaURLs")
		}
		for _, entry := range flat.Items() {
			u := mediautil.NormalizeURL(entry.StrOr(""))
			if u == "" || mediautil.IsVideoURL(u) {
				continue
			}
			photos = append(photos, u)
		}
	}

	return mediautil.Dedup(photos)
}

// extractVideo scans every container a tweet payload may hide video
// variants in and keeps the single highest-bitrate candidate. Variant
// lists inside video-typed containers are trusted; candidates whose only
// evidence is a bare URL must look like video (known host or suffix) or
// they are discarded.
func extractVideo(tweet, root payload.Value) string {
	var candidates []mediautil.VideoCandidate

	addVariants := func(container payload.Value) {
		if raw := container.Get("url").StrOr(""); raw != "" {
			if u := mediautil.NormalizeURL(raw); u != "" && mediautil.IsVideoURL(u) {
				candidates = append(candidates, mediautil.VideoCandidate{
					URL:     u,
					Bitrate: container.Get("bitrate").IntOr(0),
				})
			}
		}
		for _, variant := range container.Get("variants").Items() {
			u := mediautil.NormalizeURL(variant.Get("url").StrOr(""))
			if u == "" {
				continue
			}
			candidates = append(candidates, mediautil.VideoCandidate{
				URL:     u,
				Bitrate: variant.Get("bitrate").IntOr(0),
			})
		}
	}

	// Singular video object and video lists.
	if v := tweet.Get("video"); !v.IsNil() {
		addVariants(v)
	}
	for _, v := range tweet.Get("videos").Items() {
		addVariants(v)
	}
	for _, v := range tweet.Get("media_extended").Items() {
		if isVideoType(v.Get("type").StrOr("")) {
			addVariants(v)
		}
	}

	// Generic media entries typed video or animated gif.
	for _, entry := range tweet.Get("media").Items() {
		if !isVideoType(entry.Get("type").StrOr("")) {
			continue
		}
		raw := entry.First("url", "video_url").StrOr("")
		if u := mediautil.NormalizeURL(raw); u != "" && mediautil.IsVideoURL(u) {
			candidates = append(candidates, mediautil.VideoCandidate{
				URL:     u,
				Bitrate: entry.Get("bitrate").IntOr(0),
			})
		}
		addVariantList(entry.Get("video_info").Get("variants"), &candidates)
	}

	// Legacy extended entities.
	for _, entry := range tweet.Get("extended_entities").Get("media").Items() {
		if !isVideoType(entry.Get("type").StrOr("")) {
			continue
		}
		addVariantList(entry.Get("video_info").Get("variants"), &candidates)
	}

	// Flat URL lists: accept only URLs that look like video.
	for _, src := range []payload.Value{root.Get("mediaURLs"), tweet.Get("mediaURLs")} {
		for _, entry := range src.Items() {
			u := mediautil.NormalizeURL(entry.StrOr(""))
			if u != "" && mediautil.IsVideoURL(u) {
				candidates = append(candidates, mediautil.VideoCandidate{URL: u})
			}
		}
	}

	best, ok := mediautil.BestVariant(candidates)
	if !ok {
		return ""
	}
	return best.URL
}

func addVariantList(variants payload.Value, candidates *[]mediautil.VideoCandidate) {
	for _, variant := range variants.Items() {
		u := mediautil.NormalizeURL(variant.Get("url").StrOr(""))
		if u == "" {
			continue
		}
		*candidates = append(*candidates, mediautil.VideoCandidate{
			URL:     u,
			Bitrate: variant.Get("bitrate").IntOr(0),
		})
	}
}

func isVideoType(t string) bool {
	switch strings.ToLower(t) {
	case "video", "animated_gif", "gif":
		return true
	}
	return false
}
