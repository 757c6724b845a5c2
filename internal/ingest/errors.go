package ingest

import (
	"errors"
	"fmt"

	"github.com/kdimtricp/tubely/internal/media"
)

// Kind classifies why an ingestion failed.
type Kind int

const (
	// Internal covers collaborator failures outside the taxonomy below,
	// such as an unreachable record store during lookup.
	Internal Kind = iota
	InvalidIdentifier
	Unauthenticated
	Forbidden
	NotFound
	BadUpload
	AnalysisFailed
	TranscodeFailed
	StorageFailed
	RecordUpdateFailed
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	InvalidIdentifier:  "invalid_identifier",
	Unauthenticated:    "unauthenticated",
	Forbidden:          "forbidden",
	NotFound:           "not_found",
	BadUpload:          "bad_upload",
	AnalysisFailed:     "analysis_failed",
	TranscodeFailed:    "transcode_failed",
	StorageFailed:      "storage_failed",
	RecordUpdateFailed: "record_update_failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by Service.Ingest for every failure.
type Error struct {
	Kind    Kind
	Message string
	// Detail carries diagnostics from the failing collaborator, such as the
	// stderr of an external tool.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	e := &Error{Kind: kind, Message: msg, Err: err}
	var toolErr *media.ToolError
	switch {
	case errors.As(err, &toolErr):
		e.Detail = toolErr.Output
		if e.Detail == "" {
			e.Detail = toolErr.Error()
		}
	case err != nil && kind >= AnalysisFailed:
		e.Detail = err.Error()
	}
	return e
}

// KindOf reports the Kind of err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
