package api

import (
	"encoding/json"
	"net/http"

	"github.com/kdimtricp/tubely/internal/log"
	"github.com/kdimtricp/tubely/internal/models"
	"github.com/kdimtricp/tubely/internal/search"
)

type createVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (app *App) CreateVideoHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := app.authenticate(r)
	if err != nil {
		respondWithError(w, r, http.StatusUnauthorized, "Couldn't validate JWT", err)
		return
	}

	var req createVideoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Couldn't decode parameters", err)
		return
	}
	if req.Title == "" {
		respondWithError(w, r, http.StatusBadRequest, "Title is required", nil)
		return
	}

	video := models.NewVideo(userID, req.Title, req.Description)
	if err := app.Videos.InsertVideo(r.Context(), video); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "Couldn't create video", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, video)
}

// ListVideosHandler returns the caller's videos, newest first, or ranked by
// relevance when a ?q= search is given.
func (app *App) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := app.authenticate(r)
	if err != nil {
		respondWithError(w, r, http.StatusUnauthorized, "Couldn't validate JWT", err)
		return
	}

	videos, err := app.Videos.ListVideosByUser(r.Context(), userID)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "Couldn't retrieve videos", err)
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		videos = search.Rank(videos, q)
	}

	if app.Issuer != nil {
		videos, err = app.Issuer.SignVideos(r.Context(), videos)
		if err != nil {
			respondWithError(w, r, http.StatusInternalServerError, "Couldn't sign video URLs", err)
			return
		}
	}

	respondWithJSON(w, http.StatusOK, videos)
}

func (app *App) GetVideoHandler(w http.ResponseWriter, r *http.Request) {
	video, _, ok := app.ownedVideo(w, r)
	if !ok {
		return
	}

	signed, err := app.signed(r.Context(), *video)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "Couldn't sign video URL", err)
		return
	}

	respondWithJSON(w, http.StatusOK, signed)
}

// DeleteVideoHandler removes the record. The stored object and thumbnail are
// removed first on a best-effort basis.
func (app *App) DeleteVideoHandler(w http.ResponseWriter, r *http.Request) {
	video, _, ok := app.ownedVideo(w, r)
	if !ok {
		return
	}
	logger := log.FromContext(r.Context()).With().Str("video_id", video.ID).Logger()

	if video.HasStorageKey() {
		if err := app.Objects.Delete(r.Context(), *video.StorageKey); err != nil {
			logger.Warn().Err(err).Str("key", *video.StorageKey).Msg("failed to delete stored video")
		}
	}
	if app.Thumbnails != nil {
		if err := app.Thumbnails.Delete(r.Context(), video.ID); err != nil {
			logger.Warn().Err(err).Msg("failed to delete thumbnail")
		}
	}

	if err := app.Videos.DeleteVideo(r.Context(), video.ID); err != nil {
		respondWithError(w, r, http.StatusInternalServerError, "Couldn't delete video", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
