package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is the persisted video record. StorageKey holds the object-store key
// of the ingested file and is nil until an ingestion succeeds; it is never a
// URL at rest. Read paths substitute a presigned URL before responding.
type Video struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"index"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	StorageKey   *string   `json:"video_url" gorm:"column:video_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewVideo(userID, title, description string) *Video {
	now := time.Now().UTC()
	return &Video{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasStorageKey reports whether an ingestion has completed for v.
func (v *Video) HasStorageKey() bool {
	return v.StorageKey != nil && *v.StorageKey != ""
}
