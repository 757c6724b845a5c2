package database

import (
	"context"
	"errors"

	"github.com/kdimtricp/tubely/internal/models"
)

var ErrNotFound = errors.New("video not found")

// VideoStore persists video records. Every backend returns ErrNotFound for
// unknown ids.
//
// Records are never rewritten whole. SetStorageKey and SetThumbnailURL each
// touch one column (plus updated_at), so a slow ingestion and a thumbnail
// upload on the same video cannot undo each other.
type VideoStore interface {
	InsertVideo(ctx context.Context, video *models.Video) error
	GetVideoByID(ctx context.Context, id string) (*models.Video, error)
	SetStorageKey(ctx context.Context, id, key string) error
	SetThumbnailURL(ctx context.Context, id, url string) error
	ListVideosByUser(ctx context.Context, userID string) ([]models.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
