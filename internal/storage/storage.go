package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpiredSignature = errors.New("signature expired")
	ErrInvalidKey       = errors.New("invalid object key")
)

// ObjectStore is the durable destination for ingested videos.
type ObjectStore interface {
	// PutFile uploads the local file at path to key with the given content type.
	PutFile(ctx context.Context, key, path, contentType string) error
	// PresignGet returns a time-limited read URL for key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// ObjectReader is implemented by stores that can stream objects back
// themselves instead of handing out third-party URLs.
type ObjectReader interface {
	Open(key string) (io.ReadSeekCloser, time.Time, error)
	Verify(key, expires, signature string, now time.Time) error
}
