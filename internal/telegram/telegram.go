// Package telegram fetches messages referenced by t.me links over
// MTProto and downloads their media into a scratch directory.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/domain"
	"github.com/clipfetch/clipfetch/internal/linkparse"
)

// Result holds a fetched message plus any downloaded media. The caller
// owns the scratch files and must call Close when done with them.
type Result struct {
	Caption  string
	Kind     domain.MediaKind
	FilePath string
	FileName string

	scratchDir string
}

// HasMedia reports whether the message carried downloadable media.
func (r *Result) HasMedia() bool {
	return r.Kind != "" && r.FilePath != ""
}

// Close removes the scratch directory the media was downloaded into.
func (r *Result) Close() error {
	if r.scratchDir == "" {
		return nil
	}
	return os.RemoveAll(r.scratchDir)
}

// Fetcher resolves message links against the MTProto API using a
// pre-authorized user session.
type Fetcher struct {
	appID       int
	appHash     string
	sessionFile string
	scratchRoot string
	logger      *slog.Logger
}

// NewFetcher creates a fetcher, or nil when the credential set is
// incomplete so callers can treat the feature as disabled.
func NewFetcher(cfg config.TelegramConfig, logger *slog.Logger) *Fetcher {
	if !cfg.HasCredentials() {
		return nil
	}
	return &Fetcher{
		appID:       cfg.AppID,
		appHash:     cfg.AppHash,
		sessionFile: cfg.SessionFile,
		scratchRoot: cfg.ScratchDir,
		logger:      logger,
	}
}

// Fetch retrieves the referenced message and downloads its media. The
// MTProto client lives only for the duration of the call; the session
// file must already hold an authorized user session.
func (f *Fetcher) Fetch(ctx context.Context, ref linkparse.TelegramRef) (*Result, error) {
	if f == nil {
		return nil, domain.NewResolveError(domain.PlatformTelegram, "fetch message", domain.ErrCredentialsMissing)
	}

	client := telegram.NewClient(f.appID, f.appHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: f.sessionFile},
	})

	var result *Result
	err := client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return domain.NewResolveError(domain.PlatformTelegram, "check session",
				fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err))
		}
		if !status.Authorized {
			return domain.NewResolveError(domain.PlatformTelegram, "check session",
				fmt.Errorf("%w: session is not authorized", domain.ErrAuthenticationFailed))
		}

		api := client.API()
		result, err = fetchMessage(ctx, api, newDownloadFunc(api), ref, f.scratchRoot)
		return err
	})
	if err != nil {
		return nil, err
	}
	f.logger.Info("message fetched",
		"kind", string(result.Kind),
		"file", result.FileName,
		"caption_len", len(result.Caption))
	return result, nil
}

// downloadFunc pulls a file location to a local path. Kept as a
// function value so message handling can be tested without MTProto.
type downloadFunc func(ctx context.Context, loc tg.InputFileLocationClass, path string) error

func newDownloadFunc(api *tg.Client) downloadFunc {
	d := downloader.NewDownloader()
	return func(ctx context.Context, loc tg.InputFileLocationClass, path string) error {
		_, err := d.Download(api, loc).ToPath(ctx, path)
		return err
	}
}

// trimCaption normalizes message text into a caption.
func trimCaption(text string) string {
	return strings.TrimSpace(text)
}
