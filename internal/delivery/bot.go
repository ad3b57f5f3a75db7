package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/downloader"
	"github.com/clipfetch/clipfetch/internal/payload"
)

// BotSender implements Sender against the Bot API. Album photos are
// downloaded first and re-uploaded as files so expiring CDN links do
// not break delivery.
type BotSender struct {
	httpClient *http.Client
	baseURL    string
	chatID     string
	fetcher    downloader.Downloader
	logger     *slog.Logger
}

// NewBotSender creates a sender, or nil when delivery is not
// configured.
func NewBotSender(cfg config.DeliveryConfig, fetcher downloader.Downloader, logger *slog.Logger) *BotSender {
	if !cfg.Enabled() {
		return nil
	}
	return &BotSender{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/") + "/bot" + cfg.BotToken,
		chatID:     cfg.ChatID,
		fetcher:    fetcher,
		logger:     logger,
	}
}

// inputMediaPhoto is one entry of a sendMediaGroup media array. The
// attach:// scheme points at a multipart part carrying the bytes.
type inputMediaPhoto struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

// SendAlbum downloads and uploads each batch in order. A one-photo
// batch goes out as a single photo; larger batches as a media group.
func (s *BotSender) SendAlbum(ctx context.Context, batches []domain.AlbumBatch) error {
	sequence := 1
	for i, batch := range batches {
		files := make([]*downloader.File, 0, len(batch))
		for _, item := range batch {
			file, err := s.fetcher.Fetch(ctx, item.URL)
			if err != nil {
				return fmt.Errorf("fetch photo %d: %w", sequence, err)
			}
			file.Name = downloader.BuildFileName(item.URL, file.ContentType, "photo", sequence)
			files = append(files, file)
			sequence++
		}

		var err error
		if len(batch) == 1 {
			err = s.sendSinglePhoto(ctx, files[0], batch[0].Caption)
		} else {
			err = s.sendMediaGroup(ctx, batch, files)
		}
		if err != nil {
			return fmt.Errorf("send batch %d: %w", i+1, err)
		}
		s.logger.Info("album batch delivered", "batch", i+1, "photos", len(batch))
	}
	return nil
}

func (s *BotSender) sendSinglePhoto(ctx context.Context, file *downloader.File, caption string) error {
	return s.postMultipart(ctx, "sendPhoto", map[string]string{
		"chat_id": s.chatID,
		"caption": caption,
	}, map[string]*downloader.File{"photo": file})
}

func (s *BotSender) sendMediaGroup(ctx context.Context, batch domain.AlbumBatch, files []*downloader.File) error {
	media := make([]inputMediaPhoto, len(batch))
	attachments := make(map[string]*downloader.File, len(batch))
	for i, item := range batch {
		field := fmt.Sprintf("file%d", i)
		media[i] = inputMediaPhoto{
			Type:    "photo",
			Media:   "attach://" + field,
			Caption: item.Caption,
		}
		attachments[field] = files[i]
	}

	mediaJSON, err := json.Marshal(media)
	if err != nil {
		return fmt.Errorf("encode media group: %w", err)
	}
	return s.postMultipart(ctx, "sendMediaGroup", map[string]string{
		"chat_id": s.chatID,
		"media":   string(mediaJSON),
	}, attachments)
}

// SendVideo passes the remote URL straight through; the Bot API
// fetches it server side.
func (s *BotSender) SendVideo(ctx context.Context, videoURL, caption string) error {
	return s.postForm(ctx, "sendVideo", url.Values{
		"chat_id": {s.chatID},
		"video":   {videoURL},
		"caption": {caption},
	})
}

// SendLocalFile uploads a file from disk under the method matching its
// media kind.
func (s *BotSender) SendLocalFile(ctx context.Context, kind domain.MediaKind, path, name, caption string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read media file: %w", err)
	}
	if name == "" {
		name = filepath.Base(path)
	}

	method, field := methodForKind(kind)
	return s.postMultipart(ctx, method, map[string]string{
		"chat_id": s.chatID,
		"caption": caption,
	}, map[string]*downloader.File{field: {Data: data, Name: name}})
}

// SendText sends a plain message.
func (s *BotSender) SendText(ctx context.Context, text string) error {
	return s.postForm(ctx, "sendMessage", url.Values{
		"chat_id": {s.chatID},
		"text":    {text},
	})
}

func methodForKind(kind domain.MediaKind) (method, field string) {
	switch kind {
	case domain.MediaKindPhoto:
		return "sendPhoto", "photo"
	case domain.MediaKindVideo:
		return "sendVideo", "video"
	case domain.MediaKindAnimation:
		return "sendAnimation", "animation"
	case domain.MediaKindAudio:
		return "sendAudio", "audio"
	case domain.MediaKindVoice:
		return "sendVoice", "voice"
	default:
		return "sendDocument", "document"
	}
}

func (s *BotSender) postForm(ctx context.Context, method string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, method)
}

func (s *BotSender) postMultipart(ctx context.Context, method string, fields map[string]string, files map[string]*downloader.File) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, value := range fields {
		if value == "" && name != "chat_id" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for field, file := range files {
		part, err := w.CreateFormFile(field, file.Name)
		if err != nil {
			return fmt.Errorf("create file part %s: %w", field, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return fmt.Errorf("write file part %s: %w", field, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/"+method, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(req, method)
}

func (s *BotSender) do(req *http.Request, method string) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", method, domain.ErrUpstreamTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %w: read response: %v", method, domain.ErrUpstreamTransient, err)
	}

	v, perr := payload.Parse(body)
	if ok, _ := v.Get("ok").Bool(); perr == nil && ok {
		return nil
	}

	description := "no description"
	if perr == nil {
		description = v.Get("description").StrOr(description)
	}
	kind := domain.ErrUpstreamRejected
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		kind = domain.ErrUpstreamTransient
	}
	return fmt.Errorf("%s: %w: status %d: %s", method, kind, resp.StatusCode, description)
}
