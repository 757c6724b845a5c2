package api

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/tubely/internal/auth"
	"github.com/kdimtricp/tubely/internal/ingest"
)

const (
	videoFormField = "video"

	// formOverhead bounds the multipart framing and non-file fields that may
	// accompany an upload.
	formOverhead int64 = 64 << 10
)

func (app *App) UploadVideoHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	// a missing token surfaces as Unauthenticated after the id check
	token, _ := auth.GetBearerToken(r.Header)

	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize+formOverhead)

	video, err := app.Ingest.Ingest(r.Context(), videoID, token, multipartSource(r, videoFormField))
	if err != nil {
		respondWithIngestError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, video)
}

// multipartSource streams the named file part without buffering the form.
func multipartSource(r *http.Request, field string) ingest.FileSource {
	return func() (ingest.Upload, error) {
		mr, err := r.MultipartReader()
		if err != nil {
			return ingest.Upload{}, fmt.Errorf("expected a multipart form: %w", err)
		}
		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		boundary := params["boundary"]

		// bytes of the request consumed by parts ahead of the file
		var skipped int64
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return ingest.Upload{}, ingest.ErrNoFile
			}
			if err != nil {
				return ingest.Upload{}, fmt.Errorf("failed to read form: %w", err)
			}
			if part.FormName() != field {
				n, err := io.Copy(io.Discard, part)
				part.Close()
				if err != nil {
					return ingest.Upload{}, fmt.Errorf("failed to read form: %w", err)
				}
				skipped += partFraming(boundary, part.Header) + n
				continue
			}
			if part.FileName() == "" {
				part.Close()
				return ingest.Upload{}, fmt.Errorf("form field %q is not a file", field)
			}

			return ingest.Upload{
				Body:        part,
				Filename:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Size:        declaredSize(r, boundary, skipped, part),
			}, nil
		}
	}
}

// declaredSize prefers an explicit part length and otherwise subtracts the
// form framing from the request length. Fields after the file are counted as
// file bytes, so the result never undershoots. -1 means unknown.
func declaredSize(r *http.Request, boundary string, skipped int64, part *multipart.Part) int64 {
	if n, err := strconv.ParseInt(part.Header.Get("Content-Length"), 10, 64); err == nil && n >= 0 {
		return n
	}
	if r.ContentLength < 0 || boundary == "" {
		return -1
	}
	n := r.ContentLength - skipped - partFraming(boundary, part.Header) - int64(len("--"+boundary+"--\r\n"))
	if n < 0 {
		return -1
	}
	return n
}

// partFraming is the size of a part's delimiter, header block and trailing
// CRLF as multipart.Writer lays them out.
func partFraming(boundary string, h textproto.MIMEHeader) int64 {
	n := int64(len("--"+boundary+"\r\n")) + 2 + 2
	for k, vs := range h {
		for _, v := range vs {
			n += int64(len(k) + len(": ") + len(v) + 2)
		}
	}
	return n
}
