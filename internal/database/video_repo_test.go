package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/tubely/internal/models"
)

var backends = []struct {
	name  string
	setup func(t *testing.T) *DB
}{
	{"sqlite", setupTestDB},
	{"postgres", setupPostgresDB},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repo *VideoRepository)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, NewVideoRepository(b.setup(t)))
		})
	}
}

func TestVideoRepository_InsertVideo(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo *VideoRepository) {
		ctx := context.Background()
		video := models.NewVideo("11111111-1111-4111-8111-111111111111", "Test Video", "A test video")

		require.NoError(t, repo.InsertVideo(ctx, video))

		retrieved, err := repo.GetVideoByID(ctx, video.ID)
		require.NoError(t, err)
		assert.Equal(t, video.Title, retrieved.Title)
		assert.Equal(t, video.UserID, retrieved.UserID)
		assert.Nil(t, retrieved.StorageKey)
		assert.Nil(t, retrieved.ThumbnailURL)
	})
}

func TestVideoRepository_GetVideoByID_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo *VideoRepository) {
		_, err := repo.GetVideoByID(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestVideoRepository_SetStorageKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo *VideoRepository) {
		ctx := context.Background()
		video := models.NewVideo("11111111-1111-4111-8111-111111111111", "Title", "Description")
		require.NoError(t, repo.InsertVideo(ctx, video))

		key := "landscape/" + video.ID + ".mp4"
		require.NoError(t, repo.SetStorageKey(ctx, video.ID, key))

		got, err := repo.GetVideoByID(ctx, video.ID)
		require.NoError(t, err)
		require.NotNil(t, got.StorageKey)
		assert.Equal(t, key, *got.StorageKey)
		assert.Equal(t, "Title", got.Title)
		assert.Equal(t, "Description", got.Description)
		assert.False(t, got.UpdatedAt.Before(video.UpdatedAt))
	})
}

// Each setter writes only its own column, so interleaved writers that loaded
// the record earlier cannot undo each other.
func TestVideoRepository_SettersDoNotOverwriteEachOther(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo *VideoRepository) {
		ctx := context.Background()
		video := models.NewVideo("11111111-1111-4111-8111-111111111111", "Title", "")
		require.NoError(t, repo.InsertVideo(ctx, video))

		thumb := "http://localhost:8091/api/thumbnails/" + video.ID
		key := "portrait/" + video.ID + ".mp4"
		require.NoError(t, repo.SetThumbnailURL(ctx, video.ID, thumb))
		require.NoError(t, repo.SetStorageKey(ctx, video.ID, key))

		got, err := repo.GetVideoByID(ctx, video.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ThumbnailURL)
		require.NotNil(t, got.StorageKey)
		assert.Equal(t, thumb, *got.ThumbnailURL)
		assert.Equal(t, key, *got.StorageKey)

		require.NoError(t, repo.SetThumbnailURL(ctx, video.ID, thumb+"?v=2"))
		got, err = repo.GetVideoByID(ctx, video.ID)
		require.NoError(t, err)
		require.NotNil(t, got.StorageKey, "thumbnail update must keep the storage key")
		assert.Equal(t, key, *got.StorageKey)
	})
}

func TestVideoRepository_Setters_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo *VideoRepository) {
		ctx := context.Background()
		ghost := "11111111-1111-4111-8111-111111111111"
		assert.ErrorIs(t, repo.SetStorageKey(ctx, ghost, "landscape/x.mp4"), ErrNotFound)
		assert.ErrorIs(t, repo.SetThumbnailURL(ctx, ghost, "http://localhost/t"), ErrNotFound)
	})
}

func TestVideoRepository_ListVideosByUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo *VideoRepository) {
		ctx := context.Background()
		owner := "11111111-1111-4111-8111-111111111111"

		video1 := models.NewVideo(owner, "Video 1", "First video")
		video2 := models.NewVideo(owner, "Video 2", "Second video")
		video2.CreatedAt = video1.CreatedAt.Add(time.Second)
		other := models.NewVideo("22222222-2222-4222-8222-222222222222", "Other", "")

		for _, v := range []*models.Video{video1, video2, other} {
			require.NoError(t, repo.InsertVideo(ctx, v))
		}

		videos, err := repo.ListVideosByUser(ctx, owner)
		require.NoError(t, err)
		require.Len(t, videos, 2)
		assert.Equal(t, video2.ID, videos[0].ID, "most recent first")

		none, err := repo.ListVideosByUser(ctx, "33333333-3333-4333-8333-333333333333")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestVideoRepository_DeleteVideo(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo *VideoRepository) {
		ctx := context.Background()
		video := models.NewVideo("11111111-1111-4111-8111-111111111111", "Doomed", "")
		require.NoError(t, repo.InsertVideo(ctx, video))

		require.NoError(t, repo.DeleteVideo(ctx, video.ID))
		_, err := repo.GetVideoByID(ctx, video.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.DeleteVideo(ctx, video.ID), ErrNotFound)
	})
}
