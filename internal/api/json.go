package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kdimtricp/tubely/internal/ingest"
	"github.com/kdimtricp/tubely/internal/log"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger := log.Base()
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, r *http.Request, code int, msg string, err error) {
	logger := log.FromContext(r.Context())
	evt := logger.Debug()
	if code >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Err(err).Int("status", code).Msg(msg)
	respondWithJSON(w, code, errorResponse{Error: msg})
}

var kindStatus = map[ingest.Kind]int{
	ingest.InvalidIdentifier:  http.StatusBadRequest,
	ingest.BadUpload:          http.StatusBadRequest,
	ingest.Unauthenticated:    http.StatusUnauthorized,
	ingest.Forbidden:          http.StatusForbidden,
	ingest.NotFound:           http.StatusNotFound,
	ingest.AnalysisFailed:     http.StatusInternalServerError,
	ingest.TranscodeFailed:    http.StatusInternalServerError,
	ingest.StorageFailed:      http.StatusInternalServerError,
	ingest.RecordUpdateFailed: http.StatusInternalServerError,
	ingest.Internal:           http.StatusInternalServerError,
}

// respondWithIngestError maps a pipeline failure to its HTTP status. Server
// side failures include the collaborator diagnostics.
func respondWithIngestError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ingest.KindOf(err)
	code, ok := kindStatus[kind]
	if !ok {
		code = http.StatusInternalServerError
	}

	resp := errorResponse{Error: "Internal error"}
	var ie *ingest.Error
	if errors.As(err, &ie) {
		resp.Error = ie.Message
		if code >= http.StatusInternalServerError {
			resp.Detail = ie.Detail
		}
	}

	logger := log.FromContext(r.Context())
	evt := logger.Info()
	if code >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Err(err).Str("kind", kind.String()).Int("status", code).Msg("video upload rejected")

	respondWithJSON(w, code, resp)
}
