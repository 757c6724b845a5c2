// Package thumbnail stores one preview image per video.
package thumbnail

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("thumbnail not found")
	ErrUnsupportedType = errors.New("file format not accepted")
)

// MaxSize is the default upload cap for thumbnails.
const MaxSize int64 = 10 << 20

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Thumbnail is an image together with the media type it was uploaded as.
type Thumbnail struct {
	Data      []byte
	MediaType string
}

// Store keeps the latest thumbnail for each video id.
type Store interface {
	Put(ctx context.Context, videoID string, t Thumbnail) error
	Get(ctx context.Context, videoID string) (Thumbnail, error)
	Delete(ctx context.Context, videoID string) error
	Close() error
}

// Extension returns the file extension for an accepted media type.
func Extension(mediaType string) (string, error) {
	ext, ok := extensions[mediaType]
	if !ok {
		return "", ErrUnsupportedType
	}
	return ext, nil
}
