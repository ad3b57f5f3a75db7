package domain

import "time"

// Platform identifies which upstream adapter produced an asset.
type Platform string

const (
	PlatformTikTok   Platform = "tiktok"
	PlatformTwitter  Platform = "twitter"
	PlatformReddit   Platform = "reddit"
	PlatformTelegram Platform = "telegram"
)

func (p Platform) String() string { return string(p) }

// MediaAsset is the canonical result of resolving a post URL:
// an ordered, deduplicated set of photo URLs and/or a single best
// video URL, plus a caption.
type MediaAsset struct {
	Platform Platform
	Caption  string
	Photos   []string
	VideoURL string
	// CoverURL is an optional preview image (tiktok cover, video poster).
	CoverURL string
}

// HasMedia reports whether the asset carries at least one photo or a video.
// An asset for which this is false must never leave an extractor; the
// extractor fails with ErrNoMedia instead.
func (a *MediaAsset) HasMedia() bool {
	return len(a.Photos) > 0 || a.VideoURL != ""
}

// IsAlbum reports whether the asset should be delivered as a photo album.
func (a *MediaAsset) IsAlbum() bool { return len(a.Photos) > 0 }

// AlbumItem is one photo of an album batch with its optional caption.
// Caption is non-empty only for the first item of the first batch.
type AlbumItem struct {
	URL     string
	Caption string
}

// AlbumBatch is a bounded-size group of photos sent together to respect
// the downstream media-group limit.
type AlbumBatch []AlbumItem

// MediaKind classifies downloaded messaging-platform media.
type MediaKind string

const (
	MediaKindPhoto     MediaKind = "photo"
	MediaKindVideo     MediaKind = "video"
	MediaKindAnimation MediaKind = "animation"
	MediaKindAudio     MediaKind = "audio"
	MediaKindVoice     MediaKind = "voice"
	MediaKindDocument  MediaKind = "document"
)

// ResolveRecord is one row of the resolve history audit log. Only metadata
// about the resolution is recorded, never the fetched bytes.
type ResolveRecord struct {
	ID         string
	Platform   Platform
	URL        string
	Status     string // "ok" or "error"
	Error      string
	PhotoCount int
	HasVideo   bool
	CreatedAt  time.Time
}
