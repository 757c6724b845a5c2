package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kdimtricp/tubely/internal/models"
)

type VideoRepository struct {
	db *DB
}

var _ VideoStore = (*VideoRepository)(nil)

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) InsertVideo(ctx context.Context, video *models.Video) error {
	result := r.db.GORM().WithContext(ctx).Create(video)
	if result.Error != nil {
		return fmt.Errorf("failed to insert video: %w", result.Error)
	}
	return nil
}

func (r *VideoRepository) GetVideoByID(ctx context.Context, id string) (*models.Video, error) {
	var video models.Video
	result := r.db.GORM().WithContext(ctx).First(&video, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", result.Error)
	}
	return &video, nil
}

func (r *VideoRepository) SetStorageKey(ctx context.Context, id, key string) error {
	return r.setColumn(ctx, id, "video_url", key)
}

func (r *VideoRepository) SetThumbnailURL(ctx context.Context, id, url string) error {
	return r.setColumn(ctx, id, "thumbnail_url", url)
}

func (r *VideoRepository) setColumn(ctx context.Context, id, column, value string) error {
	result := r.db.GORM().WithContext(ctx).
		Model(&models.Video{}).
		Where("id = ?", id).
		Updates(map[string]any{
			column:       value,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VideoRepository) ListVideosByUser(ctx context.Context, userID string) ([]models.Video, error) {
	videos := []models.Video{}
	result := r.db.GORM().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&videos)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list videos: %w", result.Error)
	}
	return videos, nil
}

func (r *VideoRepository) DeleteVideo(ctx context.Context, id string) error {
	result := r.db.GORM().WithContext(ctx).Delete(&models.Video{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete video: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *VideoRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
