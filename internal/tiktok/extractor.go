package tiktok

import (
	"strings"

	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/mediautil"
	"github.com/clipfetch/clipfetch/internal/payload"
)

// ExtractAsset reduces a lookup payload to a media asset. A post with
// any discoverable images is treated as a photo album; otherwise the
// play/fallback stream is used. That split is a heuristic: the upstream
// payload carries no explicit content-type field.
func ExtractAsset(data payload.Value) (asset *domain.MediaAsset, err error) {
	defer func() {
		if r := recover(); r != nil {
			asset, err = nil, domain.ErrNoMedia
		}
	}()

	caption := buildCaption(data)
	cover := mediautil.NormalizeURL(data.Get("cover").StrOr(""))

	if photos := extractImages(data); len(photos) > 0 {
		return &domain.MediaAsset{
			Platform: domain.PlatformTikTok,
			Caption:  caption,
			Photos:   photos,
			CoverURL: cover,
		}, nil
	}

	video := mediautil.NormalizeURL(data.First("play", "wmplay").StrOr(""))
	if video == "" {
		return nil, domain.ErrNoMedia
	}
	return &domain.MediaAsset{
		Platform: domain.PlatformTikTok,
		Caption:  caption,
		VideoURL: video,
		CoverURL: cover,
	}, nil
}

// extractImages unions image candidates from every known source field:
// the direct images array, per-image url lists nested under the image
// post object, and its cover. All sources contribute in a fixed order,
// with the nested "extra" sources concatenated after the primary ones;
// first-seen order survives deduplication.
func extractImages(data payload.Value) []string {
	var candidates []string

	add := func(raw string) {
		if u := mediautil.NormalizeURL(raw); u != "" {
			candidates = append(candidates, u)
		}
	}

	// Primary: the flat images array.
	for _, img := range data.Get("images").Items() {
		if s, ok := img.Str(); ok {
			add(s)
			continue
		}
		// Some responses wrap each image in an object with a url list.
		for _, u := range img.Get("url_list").Items() {
			add(u.StrOr(""))
		}
	}

	// Extra: the nested image post object, after the primary sources.
	imagePost := data.First("image_post_info", "image_post")
	for _, img := range imagePost.Get("images").Items() {
		display := img.First("display_image", "thumbnail")
		for _, u := range display.Get("url_list").Items() {
			add(u.StrOr(""))
		}
		add(img.Get("url").StrOr(""))
	}
	for _, u := range imagePost.Get("cover").Get("url_list").Items() {
		add(u.StrOr(""))
	}

	return mediautil.Dedup(candidates)
}

func buildCaption(data payload.Value) string {
	title := strings.TrimSpace(data.First("title", "desc").StrOr(""))
	if title == "" {
		title = "TikTok"
	}
	nickname := strings.TrimSpace(data.Get("author").Get("nickname").StrOr(""))
	if nickname == "" {
		return title
	}
	return title + "\n👤 " + nickname
}
