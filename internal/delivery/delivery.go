// Package delivery pushes resolved media to a destination chat through
// the Bot API.
package delivery

import (
	"context"

	"github.com/clipfetch/clipfetch/internal/domain"
)

// Sender delivers resolved media. Implementations send album batches
// strictly in order so multi-part albums arrive as posted.
type Sender interface {
	// SendAlbum uploads photo batches sequentially. The caption rides on
	// the first item of the first batch only.
	SendAlbum(ctx context.Context, batches []domain.AlbumBatch) error

	// SendVideo sends a remote video by URL.
	SendVideo(ctx context.Context, videoURL, caption string) error

	// SendLocalFile uploads a downloaded file under its media kind.
	SendLocalFile(ctx context.Context, kind domain.MediaKind, path, name, caption string) error

	// SendText sends a plain text message.
	SendText(ctx context.Context, text string) error
}
