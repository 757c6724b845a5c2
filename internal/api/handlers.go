package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/tubely/internal/auth"
	"github.com/kdimtricp/tubely/internal/database"
	"github.com/kdimtricp/tubely/internal/ingest"
	"github.com/kdimtricp/tubely/internal/models"
	"github.com/kdimtricp/tubely/internal/storage"
	"github.com/kdimtricp/tubely/internal/thumbnail"
)

// App holds the collaborators shared by every handler.
type App struct {
	Ingest     *ingest.Service
	Auth       ingest.Authenticator
	Videos     database.VideoStore
	Objects    storage.ObjectStore
	Issuer     *storage.URLIssuer
	Thumbnails thumbnail.Store
	// ObjectReader serves /objects/* when objects are kept on local disk.
	ObjectReader storage.ObjectReader

	BaseURL            string
	MaxUploadSize      int64
	MaxThumbnailSize   int64
	RateLimitPerMinute int
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) authenticate(r *http.Request) (string, error) {
	token, err := auth.GetBearerToken(r.Header)
	if err != nil {
		return "", err
	}
	return app.Auth.Authenticate(token)
}

// ownedVideo resolves {videoID} to a record owned by the caller, writing the
// error response itself when that fails.
func (app *App) ownedVideo(w http.ResponseWriter, r *http.Request) (*models.Video, string, bool) {
	videoID := chi.URLParam(r, "videoID")
	if err := ingest.ValidateVideoID(videoID); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid video ID", err)
		return nil, "", false
	}

	userID, err := app.authenticate(r)
	if err != nil {
		respondWithError(w, r, http.StatusUnauthorized, "Couldn't validate JWT", err)
		return nil, "", false
	}

	video, ok := app.lookupVideo(w, r, videoID)
	if !ok {
		return nil, "", false
	}
	if video.UserID != userID {
		respondWithError(w, r, http.StatusForbidden, "Not authorized to access this video", nil)
		return nil, "", false
	}
	return video, userID, true
}

func (app *App) lookupVideo(w http.ResponseWriter, r *http.Request, videoID string) (*models.Video, bool) {
	video, err := app.Videos.GetVideoByID(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondWithError(w, r, http.StatusNotFound, "Couldn't find video", err)
		} else {
			respondWithError(w, r, http.StatusInternalServerError, "Couldn't get video", err)
		}
		return nil, false
	}
	return video, true
}

func (app *App) signed(ctx context.Context, v models.Video) (models.Video, error) {
	if app.Issuer == nil {
		return v, nil
	}
	return app.Issuer.SignVideo(ctx, v)
}
