// Package events announces completed ingestions to downstream consumers.
package events

import (
	"context"
	"time"
)

const TypeVideoIngested = "video.ingested"

// VideoIngested is emitted after a video's storage key has been recorded.
type VideoIngested struct {
	Type       string    `json:"type"`
	VideoID    string    `json:"video_id"`
	UserID     string    `json:"user_id"`
	StorageKey string    `json:"storage_key"`
	Aspect     string    `json:"aspect"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	PublishIngested(ctx context.Context, ev VideoIngested) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishIngested(context.Context, VideoIngested) error { return nil }
