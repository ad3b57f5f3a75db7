package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/clipfetch/clipfetch/internal/delivery"
	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/linkparse"
	"github.com/clipfetch/clipfetch/internal/repository"
	"github.com/clipfetch/clipfetch/internal/telegram"
)

type fakeFetcher struct {
	gotID string
	asset *domain.MediaAsset
	err   error
}

func (f *fakeFetcher) FetchAsset(_ context.Context, id string) (*domain.MediaAsset, error) {
	f.gotID = id
	return f.asset, f.err
}

type fakeMessageFetcher struct {
	gotRef linkparse.TelegramRef
	result *telegram.Result
	err    error
}

func (f *fakeMessageFetcher) Fetch(_ context.Context, ref linkparse.TelegramRef) (*telegram.Result, error) {
	f.gotRef = ref
	return f.result, f.err
}

type fakeSender struct {
	calls []string
	err   error
}

func (f *fakeSender) SendAlbum(_ context.Context, batches []domain.AlbumBatch) error {
	f.calls = append(f.calls, fmt.Sprintf("album:%d", len(batches)))
	return f.err
}

func (f *fakeSender) SendVideo(_ context.Context, videoURL, caption string) error {
	f.calls = append(f.calls, "video:"+videoURL)
	return f.err
}

func (f *fakeSender) SendLocalFile(_ context.Context, kind domain.MediaKind, path, name, caption string) error {
	f.calls = append(f.calls, fmt.Sprintf("file:%s:%s", kind, name))
	return f.err
}

func (f *fakeSender) SendText(_ context.Context, text string) error {
	f.calls = append(f.calls, "text:"+text)
	return f.err
}

type fakeHistory struct {
	records []domain.ResolveRecord
}

func (f *fakeHistory) Record(_ context.Context, rec *domain.ResolveRecord) error {
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeHistory) List(_ context.Context, _ repository.HistoryQuery) ([]domain.ResolveRecord, int, error) {
	return f.records, len(f.records), nil
}

func (f *fakeHistory) Close() error { return nil }

type services struct {
	tiktok, twitter, reddit *fakeFetcher
	telegram                *fakeMessageFetcher
	sender                  *fakeSender
	history                 *fakeHistory
}

func newService(t *testing.T, s services) *ResolveService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var sender delivery.Sender
	if s.sender != nil {
		sender = s.sender
	}
	var history repository.HistoryRepository
	if s.history != nil {
		history = s.history
	}
	var messages MessageFetcher
	if s.telegram != nil {
		messages = s.telegram
	}
	return NewResolveService(s.tiktok, s.twitter, s.reddit, messages, sender, history, logger)
}

func TestResolve_RoutesTwitterByID(t *testing.T) {
	tw := &fakeFetcher{asset: &domain.MediaAsset{
		Platform: domain.PlatformTwitter,
		VideoURL: "https://video.twimg.com/v.mp4",
	}}
	svc := newService(t, services{twitter: tw})

	res, err := svc.Resolve(context.Background(), "check https://x.com/user/status/12345 out")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tw.gotID != "12345" {
		t.Errorf("twitter fetcher got id %q, want the status id", tw.gotID)
	}
	if res.Platform != domain.PlatformTwitter || res.Delivered {
		t.Errorf("res = %+v", res)
	}
}

func TestResolve_TikTokGetsFullURL(t *testing.T) {
	tk := &fakeFetcher{asset: &domain.MediaAsset{
		Platform: domain.PlatformTikTok,
		VideoURL: "https://cdn.example/v.mp4",
	}}
	svc := newService(t, services{tiktok: tk})

	_, err := svc.Resolve(context.Background(), "https://www.tiktok.com/@user/video/777")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(tk.gotID, "tiktok.com/@user/video/777") {
		t.Errorf("tiktok fetcher got id %q, want the full URL", tk.gotID)
	}
}

func TestResolve_AlbumBatchedAndDelivered(t *testing.T) {
	photos := make([]string, 12)
	for i := range photos {
		photos[i] = fmt.Sprintf("https://i.redd.it/%02d.jpg", i)
	}
	rd := &fakeFetcher{asset: &domain.MediaAsset{
		Platform: domain.PlatformReddit,
		Caption:  "gallery",
		Photos:   photos,
	}}
	sender := &fakeSender{}
	history := &fakeHistory{}
	svc := newService(t, services{reddit: rd, sender: sender, history: history})

	res, err := svc.Resolve(context.Background(), "https://redd.it/abc1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Batches) != 2 {
		t.Fatalf("batches = %d, want 12 photos split into 2", len(res.Batches))
	}
	if res.Batches[0][0].Caption != "gallery" {
		t.Errorf("first item caption = %q", res.Batches[0][0].Caption)
	}
	if res.Batches[1][0].Caption != "" {
		t.Errorf("second batch leaked a caption")
	}
	if !res.Delivered || len(sender.calls) != 1 || sender.calls[0] != "album:2" {
		t.Errorf("delivery calls = %v", sender.calls)
	}

	if len(history.records) != 1 {
		t.Fatalf("history records = %d", len(history.records))
	}
	rec := history.records[0]
	if rec.Status != "ok" || rec.PhotoCount != 12 || rec.HasVideo {
		t.Errorf("record = %+v", rec)
	}
}

func TestResolve_VideoDelivered(t *testing.T) {
	tw := &fakeFetcher{asset: &domain.MediaAsset{
		Platform: domain.PlatformTwitter,
		Caption:  "clip",
		VideoURL: "https://video.twimg.com/v.mp4",
	}}
	sender := &fakeSender{}
	svc := newService(t, services{twitter: tw, sender: sender})

	res, err := svc.Resolve(context.Background(), "https://twitter.com/u/status/9")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Delivered || len(sender.calls) != 1 || sender.calls[0] != "video:https://video.twimg.com/v.mp4" {
		t.Errorf("delivery calls = %v", sender.calls)
	}
}

func TestResolve_NoLink(t *testing.T) {
	svc := newService(t, services{})
	_, err := svc.Resolve(context.Background(), "no links here")
	if !errors.Is(err, domain.ErrLinkNotFound) {
		t.Fatalf("error = %v, want ErrLinkNotFound", err)
	}
}

func TestResolve_FetchFailureRecorded(t *testing.T) {
	rd := &fakeFetcher{err: domain.NewResolveError(domain.PlatformReddit, "fetch post", domain.ErrUpstreamTransient)}
	history := &fakeHistory{}
	svc := newService(t, services{reddit: rd, history: history})

	_, err := svc.Resolve(context.Background(), "https://redd.it/bad1")
	if !errors.Is(err, domain.ErrUpstreamTransient) {
		t.Fatalf("error = %v", err)
	}
	if len(history.records) != 1 || history.records[0].Status != "error" {
		t.Fatalf("history records = %+v, want one error record", history.records)
	}
	if history.records[0].Error == "" {
		t.Error("error record has empty message")
	}
}

func TestResolve_TelegramMediaDelivered(t *testing.T) {
	tg := &fakeMessageFetcher{result: &telegram.Result{
		Caption:  "from channel",
		Kind:     domain.MediaKindVideo,
		FilePath: "/tmp/none/clip.mp4",
		FileName: "clip.mp4",
	}}
	sender := &fakeSender{}
	svc := newService(t, services{telegram: tg, sender: sender})

	res, err := svc.Resolve(context.Background(), "https://t.me/somechan/42")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tg.gotRef.Username != "somechan" || tg.gotRef.MessageID != 42 {
		t.Errorf("ref = %+v", tg.gotRef)
	}
	if res.Telegram == nil || res.Telegram.Kind != domain.MediaKindVideo || res.Telegram.FileName != "clip.mp4" {
		t.Errorf("telegram media = %+v", res.Telegram)
	}
	if len(sender.calls) != 1 || sender.calls[0] != "file:video:clip.mp4" {
		t.Errorf("delivery calls = %v", sender.calls)
	}
	if hasVideo(res) != true {
		t.Error("hasVideo = false for a video message")
	}
}

func TestResolve_TelegramDisabled(t *testing.T) {
	svc := newService(t, services{})
	_, err := svc.Resolve(context.Background(), "https://t.me/chan/1")
	if !errors.Is(err, domain.ErrCredentialsMissing) {
		t.Fatalf("error = %v, want ErrCredentialsMissing", err)
	}
}

func TestResolve_TelegramTextOnlyWithoutSender(t *testing.T) {
	tg := &fakeMessageFetcher{result: &telegram.Result{Caption: "words"}}
	svc := newService(t, services{telegram: tg})

	res, err := svc.Resolve(context.Background(), "https://t.me/chan/5")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Telegram != nil {
		t.Errorf("Telegram = %+v, want nil for a text message", res.Telegram)
	}
	if res.Asset != nil {
		t.Errorf("Asset = %+v, want nil for a text message", res.Asset)
	}
	if res.Caption != "words" {
		t.Errorf("Caption = %q", res.Caption)
	}
}
