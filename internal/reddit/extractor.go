package reddit

import (
	"strings"

	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/mediautil"
	"github.com/clipfetch/clipfetch/internal/payload"
)

// ExtractAsset reduces a post listing to a media asset. Fails with
// ErrUpstreamMalformed when no post object exists anywhere in the
// listing, and ErrNoMedia when the post carries nothing downloadable.
func ExtractAsset(root payload.Value) (asset *domain.MediaAsset, err error) {
	defer func() {
		if r := recover(); r != nil {
			asset, err = nil, domain.ErrNoMedia
		}
	}()

	post, ok := findPost(root)
	if !ok {
		return nil, domain.ErrUpstreamMalformed
	}

	photos := extractPhotos(post)
	videoURL := extractVideo(post, 0)

	if len(photos) == 0 && videoURL == "" {
		return nil, domain.ErrNoMedia
	}

	return &domain.MediaAsset{
		Platform: domain.PlatformReddit,
		Caption:  buildCaption(post),
		Photos:   photos,
		VideoURL: videoURL,
	}, nil
}

// findPost digs the t3 post object out of the listing envelope. The
// listing is usually a two-element array of Listing kinds, but the post
// may also arrive bare.
func findPost(v payload.Value) (payload.Value, bool) {
	if items := v.Items(); items != nil {
		for _, item := range items {
			if post, ok := findPost(item); ok {
				return post, true
			}
		}
		return payload.Value{}, false
	}

	data := v.Get("data")
	if !data.IsNil() {
		if children := data.Get("children").Items(); children != nil {
			for _, child := range children {
				childData := child.Get("data")
				if !childData.IsNil() {
					return childData, true
				}
			}
		} else if v.Get("kind").StrOr("") == "t3" {
			return data, true
		}
	}

	return payload.Value{}, false
}

func buildCaption(post payload.Value) string {
	title := strings.TrimSpace(post.Get("title").StrOr(""))
	if title == "" {
		title = "Reddit"
	}
	author := strings.TrimSpace(post.Get("author").StrOr(""))
	if author == "" {
		return title
	}
	return title + "\n👤 u/" + author
}

func extractPhotos(post payload.Value) []string {
	if photos := extractGalleryPhotos(post); len(photos) > 0 {
		return photos
	}
	if single := extractSinglePhoto(post); single != "" {
		return []string{single}
	}
	return nil
}

// extractGalleryPhotos walks the gallery metadata in the explicit item
// ordering when the post carries one, falling back to key order.
func extractGalleryPhotos(post payload.Value) []string {
	metadata := post.Get("media_metadata")
	if metadata.IsNil() {
		return nil
	}

	var orderedIDs []string
	for _, item := range post.Get("gallery_data").Get("items").Items() {
		if id, ok := item.Get("media_id").Str(); ok {
			orderedIDs = append(orderedIDs, id)
		}
	}
	if len(orderedIDs) == 0 {
		orderedIDs = metadata.Keys()
	}

	var photos []string
	for _, id := range orderedIDs {
		url := resolveGalleryURL(metadata.Get(id))
		if url == "" {
			continue
		}
		if normalized := mediautil.NormalizeURL(url); normalized != "" {
			photos = append(photos, normalized)
		}
	}
	return mediautil.Dedup(photos)
}

// resolveGalleryURL picks a usable URL from one gallery entry: the
// preferred single source first, then the preview array.
func resolveGalleryURL(entry payload.Value) string {
	if !strings.EqualFold(entry.Get("status").StrOr(""), "valid") {
		return ""
	}

	sources := []payload.Value{entry.Get("s")}
	sources = append(sources, entry.Get("p").Items()...)

	for _, source := range sources {
		if url := strings.TrimSpace(source.First("u", "url").StrOr("")); url != "" {
			return url
		}
	}
	return ""
}

func extractSinglePhoto(post payload.Value) string {
	direct := post.First("url_overridden_by_dest", "url").StrOr("")
	if direct != "" && mediautil.IsImageURL(direct) {
		return mediautil.NormalizeURL(direct)
	}

	for _, image := range post.Get("preview").Get("images").Items() {
		if url := image.Get("source").Get("url").StrOr(""); url != "" {
			if normalized := mediautil.NormalizeURL(url); normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

// maxCrosspostDepth bounds recursion into crosspost parents.
const maxCrosspostDepth = 3

func extractVideo(post payload.Value, depth int) string {
	sections := []payload.Value{
		post.Get("secure_media"),
		post.Get("media"),
		post.Get("preview").Get("reddit_video_preview"),
	}
	for _, section := range sections {
		if url := extractRedditVideo(section); url != "" {
			return url
		}
	}

	direct := post.First("url_overridden_by_dest", "url").StrOr("")
	if direct != "" && mediautil.IsVideoURL(direct) {
		if normalized := mediautil.NormalizeURL(direct); normalized != "" {
			return normalized
		}
	}

	if depth < maxCrosspostDepth {
		for _, parent := range post.Get("crosspost_parent_list").Items() {
			if url := extractVideo(parent, depth+1); url != "" {
				return url
			}
		}
	}

	return ""
}

// extractRedditVideo reads a media section that either embeds a
// reddit_video object or is itself generically typed "video". The
// reddit_video URL fields are tried in fixed priority order.
func extractRedditVideo(section payload.Value) string {
	redditVideo := section.Get("reddit_video")
	if !redditVideo.IsNil() {
		for _, key := range []string{"fallback_url", "scrubber_media_url", "hls_url", "dash_url"} {
			if url := redditVideo.Get(key).StrOr(""); url != "" {
				if normalized := mediautil.NormalizeURL(url); normalized != "" {
					return normalized
				}
			}
		}
		return ""
	}

	if section.Get("type").StrOr("") == "video" {
		if url := section.First("fallback_url", "url").StrOr(""); url != "" {
			return mediautil.NormalizeURL(url)
		}
	}
	return ""
}
