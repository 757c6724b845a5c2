package thumbnail

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tubely:thumbnail:"

// RedisStore keeps each thumbnail in a hash with "type" and "data" fields.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to addr. A ttl of zero keeps thumbnails forever.
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Put(ctx context.Context, videoID string, t Thumbnail) error {
	key := redisKeyPrefix + videoID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "type", t.MediaType, "data", t.Data)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store thumbnail: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, videoID string) (Thumbnail, error) {
	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+videoID).Result()
	if err != nil {
		return Thumbnail{}, fmt.Errorf("failed to load thumbnail: %w", err)
	}
	if len(fields) == 0 {
		return Thumbnail{}, ErrNotFound
	}
	return Thumbnail{Data: []byte(fields["data"]), MediaType: fields["type"]}, nil
}

func (r *RedisStore) Delete(ctx context.Context, videoID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+videoID).Err(); err != nil {
		return fmt.Errorf("failed to delete thumbnail: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
