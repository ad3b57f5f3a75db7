package mediautil

import (
	"fmt"

	"github.com/clipfetch/clipfetch/internal/domain"
)

// MediaGroupLimit is the largest album the delivery transport accepts in
// one media group.
const MediaGroupLimit = 10

// BatchAlbum splits an ordered photo list into batches of at most size
// items. The caption is attached only to the first photo of the first
// batch; every other item carries none.
func BatchAlbum(photos []string, caption string, size int) ([]domain.AlbumBatch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	if len(photos) == 0 {
		return nil, domain.ErrNoMedia
	}

	batches := make([]domain.AlbumBatch, 0, (len(photos)+size-1)/size)
	for start := 0; start < len(photos); start += size {
		end := start + size
		if end > len(photos) {
			end = len(photos)
		}
		batch := make(domain.AlbumBatch, 0, end-start)
		for i, url := range photos[start:end] {
			item := domain.AlbumItem{URL: url}
			if start == 0 && i == 0 {
				item.Caption = caption
			}
			batch = append(batch, item)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}
