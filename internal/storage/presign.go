package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/kdimtricp/tubely/internal/models"
)

// Presigner is the part of ObjectStore the issuer needs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// URLIssuer turns stored object keys into time-limited URLs at read time.
type URLIssuer struct {
	presigner Presigner
	ttl       time.Duration
}

func NewURLIssuer(p Presigner, ttl time.Duration) *URLIssuer {
	return &URLIssuer{presigner: p, ttl: ttl}
}

func (i *URLIssuer) TTL() time.Duration {
	return i.ttl
}

// Sign returns a presigned URL for key.
func (i *URLIssuer) Sign(ctx context.Context, key string) (string, error) {
	return i.presigner.PresignGet(ctx, key, i.ttl)
}

// SignVideo returns a copy of v whose video_url carries a presigned URL.
// Records without a storage key come back unchanged.
func (i *URLIssuer) SignVideo(ctx context.Context, v models.Video) (models.Video, error) {
	if !v.HasStorageKey() {
		return v, nil
	}
	u, err := i.Sign(ctx, *v.StorageKey)
	if err != nil {
		return v, fmt.Errorf("failed to sign video %s: %w", v.ID, err)
	}
	v.StorageKey = &u
	return v, nil
}

// SignVideos signs every record in vs.
func (i *URLIssuer) SignVideos(ctx context.Context, vs []models.Video) ([]models.Video, error) {
	out := make([]models.Video, 0, len(vs))
	for _, v := range vs {
		signed, err := i.SignVideo(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, signed)
	}
	return out, nil
}
