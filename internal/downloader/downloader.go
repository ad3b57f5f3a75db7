// Package downloader fetches remote media bytes so they can be
// re-uploaded downstream.
package downloader

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
)

// File is a downloaded media item held in memory. Album photos are
// small enough that buffering beats streaming here.
type File struct {
	Data        []byte
	Name        string
	ContentType string
}

// Downloader fetches a single URL into memory.
type Downloader interface {
	Fetch(ctx context.Context, url string) (*File, error)
}

// BuildFileName derives an upload file name from the source URL and
// the response content type. The URL path wins when it carries a sane
// extension; otherwise the content type decides, defaulting to .jpg.
func BuildFileName(rawURL, contentType, prefix string, sequence int) string {
	var stem, suffix string
	if u, err := url.Parse(rawURL); err == nil {
		base := path.Base(u.Path)
		if ext := path.Ext(base); ext != "" && len(ext) <= 5 {
			suffix = ext
		}
		if stem = strings.TrimSuffix(base, suffix); stem == "." || stem == "/" {
			stem = ""
		}
	}

	if suffix == "" && contentType != "" {
		mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			suffix = exts[0]
			if suffix == ".jpe" {
				suffix = ".jpg"
			}
		}
	}
	if suffix == "" {
		suffix = ".jpg"
	}

	if stem == "" {
		if prefix == "" {
			prefix = "file"
		}
		stem = fmt.Sprintf("%s_%02d", prefix, sequence)
	}
	return stem + suffix
}
