package api

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/tubely/internal/ingest"
	"github.com/kdimtricp/tubely/internal/log"
	"github.com/kdimtricp/tubely/internal/metrics"
	"github.com/kdimtricp/tubely/internal/thumbnail"
)

const thumbnailFormField = "thumbnail"

func (app *App) UploadThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	video, userID, ok := app.ownedVideo(w, r)
	if !ok {
		metrics.ObserveThumbnail("rejected")
		return
	}
	logger := log.FromContext(r.Context())
	logger.Info().Str("video_id", video.ID).Str("user_id", userID).Msg("uploading thumbnail")

	maxSize := app.MaxThumbnailSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		metrics.ObserveThumbnail("rejected")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, r, http.StatusBadRequest, "File is too large", err)
			return
		}
		respondWithError(w, r, http.StatusBadRequest, "Couldn't parse form", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(thumbnailFormField)
	if err != nil {
		metrics.ObserveThumbnail("rejected")
		respondWithError(w, r, http.StatusBadRequest, "Thumbnail file missing", err)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		metrics.ObserveThumbnail("rejected")
		respondWithError(w, r, http.StatusBadRequest, "File is too large", nil)
		return
	}

	mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil {
		metrics.ObserveThumbnail("rejected")
		respondWithError(w, r, http.StatusBadRequest, "Missing Content-Type for thumbnail", err)
		return
	}
	if _, err := thumbnail.Extension(mediaType); err != nil {
		metrics.ObserveThumbnail("rejected")
		respondWithError(w, r, http.StatusBadRequest, "File format not accepted", err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize))
	if err != nil {
		metrics.ObserveThumbnail("failed")
		respondWithError(w, r, http.StatusBadRequest, "Couldn't read thumbnail", err)
		return
	}

	if err := app.Thumbnails.Put(r.Context(), video.ID, thumbnail.Thumbnail{Data: data, MediaType: mediaType}); err != nil {
		metrics.ObserveThumbnail("failed")
		respondWithError(w, r, http.StatusInternalServerError, "Couldn't save thumbnail", err)
		return
	}

	thumbnailURL := app.BaseURL + "/api/thumbnails/" + video.ID
	if err := app.Videos.SetThumbnailURL(r.Context(), video.ID, thumbnailURL); err != nil {
		metrics.ObserveThumbnail("failed")
		respondWithError(w, r, http.StatusInternalServerError, "Couldn't update video", err)
		return
	}
	video.ThumbnailURL = &thumbnailURL

	metrics.ObserveThumbnail("ok")
	respondWithJSON(w, http.StatusOK, video)
}

func (app *App) GetThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if err := ingest.ValidateVideoID(videoID); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Invalid video ID", err)
		return
	}

	if _, ok := app.lookupVideo(w, r, videoID); !ok {
		return
	}

	thumb, err := app.Thumbnails.Get(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, thumbnail.ErrNotFound) {
			respondWithError(w, r, http.StatusNotFound, "Thumbnail not found", err)
			return
		}
		respondWithError(w, r, http.StatusInternalServerError, "Couldn't load thumbnail", err)
		return
	}

	w.Header().Set("Content-Type", thumb.MediaType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(thumb.Data)
}
