// Package service orchestrates link resolution: detect the platform,
// fetch and extract the media, batch albums, and optionally deliver.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/clipfetch/clipfetch/internal/delivery"
	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/linkparse"
	"github.com/clipfetch/clipfetch/internal/mediautil"
	"github.com/clipfetch/clipfetch/internal/repository"
	"github.com/clipfetch/clipfetch/internal/telegram"
)

// AssetFetcher resolves a platform resource identifier into a media
// asset. The tiktok, twitter and reddit clients all satisfy it.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, id string) (*domain.MediaAsset, error)
}

// MessageFetcher fetches a message link and downloads its media.
type MessageFetcher interface {
	Fetch(ctx context.Context, ref linkparse.TelegramRef) (*telegram.Result, error)
}

// TelegramMedia describes media downloaded from a message link. The
// scratch files are gone by the time a Resolution is returned; only
// the metadata survives.
type TelegramMedia struct {
	Kind     domain.MediaKind `json:"kind"`
	FileName string           `json:"file_name"`
}

// Resolution is the outcome of resolving one link. Message links that
// carry no media report their text in Caption; Asset stays nil because
// an asset without photos or a video is never built.
type Resolution struct {
	Platform  domain.Platform     `json:"platform"`
	URL       string              `json:"url"`
	Caption   string              `json:"caption,omitempty"`
	Asset     *domain.MediaAsset  `json:"asset,omitempty"`
	Batches   []domain.AlbumBatch `json:"batches,omitempty"`
	Telegram  *TelegramMedia      `json:"telegram,omitempty"`
	Delivered bool                `json:"delivered"`
}

// ResolveService wires the per-platform adapters behind one entry
// point. Sender, message fetcher and history are optional; a nil value
// disables that feature.
type ResolveService struct {
	tiktok   AssetFetcher
	twitter  AssetFetcher
	reddit   AssetFetcher
	telegram MessageFetcher
	sender   delivery.Sender
	history  repository.HistoryRepository
	logger   *slog.Logger
}

// NewResolveService creates the orchestrator.
func NewResolveService(
	tiktok, twitter, reddit AssetFetcher,
	telegram MessageFetcher,
	sender delivery.Sender,
	history repository.HistoryRepository,
	logger *slog.Logger,
) *ResolveService {
	return &ResolveService{
		tiktok:   tiktok,
		twitter:  twitter,
		reddit:   reddit,
		telegram: telegram,
		sender:   sender,
		history:  history,
		logger:   logger,
	}
}

// Resolve scans the text for a supported link and runs the full
// pipeline on the first one found. domain.ErrLinkNotFound comes back
// untouched so callers can tell "no link" from a failed resolution.
func (s *ResolveService) Resolve(ctx context.Context, text string) (*Resolution, error) {
	link, err := linkparse.Find(text)
	if err != nil {
		return nil, err
	}

	res, err := s.resolveLink(ctx, link)
	s.record(ctx, link, res, err)
	if err != nil {
		s.logger.Error("resolution failed", "platform", string(link.Platform), "url", link.URL, "error", err)
		return nil, err
	}

	s.logger.Info("link resolved",
		"platform", string(link.Platform),
		"url", link.URL,
		"photos", photoCount(res),
		"has_video", hasVideo(res),
		"delivered", res.Delivered)
	return res, nil
}

func (s *ResolveService) resolveLink(ctx context.Context, link linkparse.Link) (*Resolution, error) {
	if link.Platform == domain.PlatformTelegram {
		return s.resolveMessage(ctx, link)
	}

	fetcher, err := s.fetcherFor(link.Platform)
	if err != nil {
		return nil, err
	}

	asset, err := fetcher.FetchAsset(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Platform: link.Platform, URL: link.URL, Asset: asset}
	if asset.IsAlbum() {
		res.Batches, err = mediautil.BatchAlbum(asset.Photos, asset.Caption, mediautil.MediaGroupLimit)
		if err != nil {
			return nil, err
		}
	}

	if s.sender != nil {
		if err := s.deliver(ctx, res); err != nil {
			return nil, err
		}
		res.Delivered = true
	}
	return res, nil
}

func (s *ResolveService) fetcherFor(platform domain.Platform) (AssetFetcher, error) {
	switch platform {
	case domain.PlatformTikTok:
		return s.tiktok, nil
	case domain.PlatformTwitter:
		return s.twitter, nil
	case domain.PlatformReddit:
		return s.reddit, nil
	default:
		return nil, domain.NewResolveError(platform, "route link", domain.ErrResolution)
	}
}

func (s *ResolveService) deliver(ctx context.Context, res *Resolution) error {
	switch {
	case len(res.Batches) > 0:
		return s.sender.SendAlbum(ctx, res.Batches)
	case res.Asset.VideoURL != "":
		return s.sender.SendVideo(ctx, res.Asset.VideoURL, res.Asset.Caption)
	default:
		return s.sender.SendText(ctx, res.Asset.Caption)
	}
}

// resolveMessage handles message links: fetch over MTProto, forward
// the downloaded file when delivery is on, and always drop the scratch
// files before returning.
func (s *ResolveService) resolveMessage(ctx context.Context, link linkparse.Link) (*Resolution, error) {
	if s.telegram == nil {
		return nil, domain.NewResolveError(domain.PlatformTelegram, "fetch message", domain.ErrCredentialsMissing)
	}

	result, err := s.telegram.Fetch(ctx, *link.Telegram)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := result.Close(); cerr != nil {
			s.logger.Warn("scratch cleanup failed", "error", cerr)
		}
	}()

	res := &Resolution{
		Platform: domain.PlatformTelegram,
		URL:      link.URL,
		Caption:  result.Caption,
	}
	if result.HasMedia() {
		res.Telegram = &TelegramMedia{Kind: result.Kind, FileName: result.FileName}
	}

	if s.sender != nil {
		if result.HasMedia() {
			err = s.sender.SendLocalFile(ctx, result.Kind, result.FilePath, result.FileName, result.Caption)
		} else if result.Caption != "" {
			err = s.sender.SendText(ctx, result.Caption)
		} else {
			err = domain.NewResolveError(domain.PlatformTelegram, "deliver message", domain.ErrNoMedia)
		}
		if err != nil {
			return nil, err
		}
		res.Delivered = true
	}
	return res, nil
}

// record appends to the history audit log. Failures here are logged
// and swallowed so auditing never breaks a resolve.
func (s *ResolveService) record(ctx context.Context, link linkparse.Link, res *Resolution, resolveErr error) {
	if s.history == nil {
		return
	}

	rec := &domain.ResolveRecord{
		Platform: link.Platform,
		URL:      link.URL,
		Status:   "ok",
	}
	if resolveErr != nil {
		rec.Status = "error"
		rec.Error = resolveErr.Error()
	} else {
		rec.PhotoCount = photoCount(res)
		rec.HasVideo = hasVideo(res)
	}

	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("history record failed", "url", link.URL, "error", err)
	}
}

// History exposes the audit log for the API layer. Returns nil when
// history is disabled.
func (s *ResolveService) History(ctx context.Context, query repository.HistoryQuery) ([]domain.ResolveRecord, int, error) {
	if s.history == nil {
		return nil, 0, errors.New("history is disabled")
	}
	return s.history.List(ctx, query)
}

// HistoryEnabled reports whether the audit log is configured.
func (s *ResolveService) HistoryEnabled() bool {
	return s.history != nil
}

func photoCount(res *Resolution) int {
	if res == nil || res.Asset == nil {
		return 0
	}
	return len(res.Asset.Photos)
}

func hasVideo(res *Resolution) bool {
	if res == nil {
		return false
	}
	if res.Asset != nil && res.Asset.VideoURL != "" {
		return true
	}
	return res.Telegram != nil && res.Telegram.Kind == domain.MediaKindVideo
}
