package api

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/tubely/internal/storage"
)

// ServeObjectHandler serves objects from the local store behind the signed
// URLs it issues. Range requests are handled by http.ServeContent.
func (app *App) ServeObjectHandler(w http.ResponseWriter, r *http.Request) {
	if app.ObjectReader == nil {
		http.NotFound(w, r)
		return
	}

	key := chi.URLParam(r, "*")
	q := r.URL.Query()
	if err := app.ObjectReader.Verify(key, q.Get("expires"), q.Get("signature"), time.Now()); err != nil {
		msg := "Invalid signature"
		if errors.Is(err, storage.ErrExpiredSignature) {
			msg = "Link expired"
		}
		respondWithError(w, r, http.StatusForbidden, msg, err)
		return
	}

	file, modTime, err := app.ObjectReader.Open(key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			respondWithError(w, r, http.StatusNotFound, "Object not found", err)
			return
		}
		respondWithError(w, r, http.StatusInternalServerError, "Error accessing object", err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", objectContentType(key))
	w.Header().Set("Cache-Control", "private, no-store")

	http.ServeContent(w, r, path.Base(key), modTime, file)
}

func objectContentType(key string) string {
	ext := path.Ext(key)
	if ext == ".mp4" {
		return "video/mp4"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
