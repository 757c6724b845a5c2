package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kdimtricp/tubely/internal/database"
	"github.com/kdimtricp/tubely/internal/events"
	"github.com/kdimtricp/tubely/internal/log"
	"github.com/kdimtricp/tubely/internal/media"
	"github.com/kdimtricp/tubely/internal/models"
	"github.com/kdimtricp/tubely/internal/storage"
)

const (
	ContentTypeMP4 = "video/mp4"

	// MaxUploadSize is the largest video accepted regardless of configuration.
	MaxUploadSize int64 = 1 << 30

	// diagnostics beyond this are kept in the error but not in logs
	maxLoggedDetail = 4 << 10
)

// Stage names used for spans and metrics.
const (
	StagePersist = "persist"
	StageProbe   = "probe"
	StageRemux   = "remux"
	StageUpload  = "upload"
	StageRecord  = "record"
)

var tracer = otel.Tracer("github.com/kdimtricp/tubely/internal/ingest")

type Authenticator interface {
	Authenticate(token string) (string, error)
}

// RecordStore is the slice of the record store the pipeline needs. The key is
// written on its own so fields changed while the pipeline ran are kept.
type RecordStore interface {
	GetVideoByID(ctx context.Context, id string) (*models.Video, error)
	SetStorageKey(ctx context.Context, id, key string) error
}

type Prober interface {
	Probe(ctx context.Context, path string) (media.AspectClass, error)
}

type Remuxer interface {
	Remux(ctx context.Context, path string) (string, error)
}

type ObjectStore interface {
	PutFile(ctx context.Context, key, path, contentType string) error
}

// Observer receives timings; metrics.Ingest implements it.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveResult(result string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration)  {}
func (nopObserver) ObserveResult(string, time.Duration) {}

// Upload is the file half of an ingestion request.
type Upload struct {
	Body        io.Reader
	Filename    string
	ContentType string
	// Size is the declared length in bytes, or -1 if the transport does not know it.
	Size int64
}

// FileSource yields the uploaded file. It is only called once the caller
// is known to own the video, so no bytes are read for rejected requests.
type FileSource func() (Upload, error)

// ErrNoFile is returned by a FileSource when the request carries no file.
var ErrNoFile = errors.New("no file in request")

type Deps struct {
	Auth      Authenticator
	Records   RecordStore
	Prober    Prober
	Remuxer   Remuxer
	Objects   ObjectStore
	Scratch   *storage.ScratchSpace
	Publisher events.Publisher
	Observer  Observer
}

type Options struct {
	MaxUploadSize     int64
	SerializePerVideo bool
}

// Service runs the ingestion pipeline. It is safe for concurrent use.
type Service struct {
	auth      Authenticator
	records   RecordStore
	prober    Prober
	remuxer   Remuxer
	objects   ObjectStore
	scratch   *storage.ScratchSpace
	publisher events.Publisher
	observer  Observer

	maxUpload int64
	locks     *keyedMutex
	now       func() time.Time
}

func NewService(deps Deps, opts Options) *Service {
	s := &Service{
		auth:      deps.Auth,
		records:   deps.Records,
		prober:    deps.Prober,
		remuxer:   deps.Remuxer,
		objects:   deps.Objects,
		scratch:   deps.Scratch,
		publisher: deps.Publisher,
		observer:  deps.Observer,
		maxUpload: opts.MaxUploadSize,
		now:       time.Now,
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.maxUpload <= 0 || s.maxUpload > MaxUploadSize {
		s.maxUpload = MaxUploadSize
	}
	if opts.SerializePerVideo {
		s.locks = newKeyedMutex()
	}
	return s
}

// Ingest validates an upload for videoID, stores the fast-start remux under
// "{aspect}/{videoID}.mp4" and records that key. Every failure is an *Error.
// Temporary files are gone by the time Ingest returns.
func (s *Service) Ingest(ctx context.Context, videoID, token string, src FileSource) (video *models.Video, err error) {
	start := s.now()
	ctx, span := tracer.Start(ctx, "ingest", trace.WithAttributes(attribute.String("video.id", videoID)))
	logger := log.WithComponentFromContext(ctx, "ingest").With().Str("video_id", videoID).Logger()

	defer func() {
		kind := "ok"
		if err != nil {
			kind = KindOf(err).String()
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
		}
		span.End()
		s.observer.ObserveResult(kind, s.now().Sub(start))
	}()

	if err := ValidateVideoID(videoID); err != nil {
		return nil, err
	}

	userID, err := s.auth.Authenticate(token)
	if err != nil {
		return nil, newError(Unauthenticated, "couldn't validate JWT", err)
	}
	logger = logger.With().Str("user_id", userID).Logger()

	if s.locks != nil {
		unlock, err := s.locks.Lock(ctx, videoID)
		if err != nil {
			return nil, newError(Internal, "gave up waiting for concurrent ingestion", err)
		}
		defer unlock()
	}

	record, err := s.records.GetVideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, newError(NotFound, "couldn't find video", err)
		}
		return nil, newError(Internal, "couldn't load video", err)
	}
	if record.UserID != userID {
		return nil, &Error{Kind: Forbidden, Message: "not authorized to update this video"}
	}

	upload, err := src()
	if err != nil {
		return nil, newError(BadUpload, "couldn't read video file from request", err)
	}
	if c, ok := upload.Body.(io.Closer); ok {
		defer c.Close()
	}
	if upload.Size > s.maxUpload {
		return nil, &Error{Kind: BadUpload, Message: fmt.Sprintf("file exceeds the maximum size of %d bytes", s.maxUpload)}
	}
	mediaType, _, err := mime.ParseMediaType(upload.ContentType)
	if err != nil || mediaType != ContentTypeMP4 {
		return nil, &Error{Kind: BadUpload, Message: "invalid file type, only MP4 is allowed"}
	}

	scratch, err := s.scratch.Acquire(videoID)
	if err != nil {
		return nil, newError(Internal, "couldn't create temporary workspace", err)
	}
	defer func() {
		if rerr := scratch.Release(); rerr != nil {
			logger.Error().Err(rerr).Str("dir", scratch.Dir()).Msg("failed to remove temporary files")
		}
	}()

	// The pipeline runs to completion once bytes hit disk; a disconnecting
	// caller only discards the response.
	ctx = context.WithoutCancel(ctx)

	const rawName = "upload.mp4"
	rawPath := scratch.Path(rawName)
	if err := s.stage(ctx, StagePersist, func(context.Context) error {
		return s.persist(scratch, rawName, upload.Body)
	}); err != nil {
		return nil, err
	}

	var aspect media.AspectClass
	if err := s.stage(ctx, StageProbe, func(ctx context.Context) error {
		var perr error
		aspect, perr = s.prober.Probe(ctx, rawPath)
		return perr
	}); err != nil {
		logToolFailure(logger, StageProbe, err)
		return nil, newError(AnalysisFailed, "couldn't determine video aspect ratio", err)
	}

	var processed string
	if err := s.stage(ctx, StageRemux, func(ctx context.Context) error {
		var rerr error
		processed, rerr = s.remuxer.Remux(ctx, rawPath)
		return rerr
	}); err != nil {
		logToolFailure(logger, StageRemux, err)
		return nil, newError(TranscodeFailed, "couldn't process video for fast start", err)
	}

	key := ObjectKey(string(aspect), videoID)
	if err := s.stage(ctx, StageUpload, func(ctx context.Context) error {
		return s.objects.PutFile(ctx, key, processed, ContentTypeMP4)
	}); err != nil {
		logger.Error().Err(err).Str("key", key).Msg("object upload failed")
		return nil, newError(StorageFailed, "couldn't upload video to storage", err)
	}

	if err := s.stage(ctx, StageRecord, func(ctx context.Context) error {
		return s.records.SetStorageKey(ctx, videoID, key)
	}); err != nil {
		logger.Error().Err(err).Str("orphaned_key", key).Msg("stored object is not referenced by any record")
		return nil, newError(RecordUpdateFailed, "couldn't update video record", err)
	}

	if err := s.publisher.PublishIngested(ctx, events.VideoIngested{
		Type:       events.TypeVideoIngested,
		VideoID:    videoID,
		UserID:     userID,
		StorageKey: key,
		Aspect:     string(aspect),
		At:         s.now().UTC(),
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to publish ingestion event")
	}

	logger.Info().
		Str("key", key).
		Str("aspect", string(aspect)).
		Dur("duration", s.now().Sub(start)).
		Msg("video ingested")

	record.StorageKey = &key
	return record, nil
}

func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "ingest."+name)
	defer span.End()

	start := s.now()
	err := fn(ctx)
	s.observer.ObserveStage(name, s.now().Sub(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
	}
	return err
}

// persist copies body into the named scratch file. A body longer than the
// configured maximum is a BadUpload.
func (s *Service) persist(scratch *storage.Scratch, name string, body io.Reader) error {
	f, err := scratch.Create(name)
	if err != nil {
		return newError(Internal, "couldn't create temporary file", err)
	}
	defer f.Close()

	r := &readTracker{r: io.LimitReader(body, s.maxUpload+1)}
	n, err := io.Copy(f, r)
	switch {
	case r.err != nil:
		return newError(BadUpload, "couldn't read uploaded file", r.err)
	case err != nil:
		return newError(Internal, "couldn't write temporary file", err)
	case n > s.maxUpload:
		return &Error{Kind: BadUpload, Message: fmt.Sprintf("file exceeds the maximum size of %d bytes", s.maxUpload)}
	case n == 0:
		return &Error{Kind: BadUpload, Message: "uploaded file is empty"}
	}
	if err := f.Close(); err != nil {
		return newError(Internal, "couldn't write temporary file", err)
	}
	return nil
}

// readTracker remembers read errors so they can be told apart from write errors.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

func logToolFailure(logger zerolog.Logger, stage string, err error) {
	ev := logger.Error().Err(err).Str("stage", stage)
	var toolErr *media.ToolError
	if errors.As(err, &toolErr) {
		out := toolErr.Output
		if len(out) > maxLoggedDetail {
			out = out[:maxLoggedDetail]
		}
		ev = ev.Str("tool", toolErr.Tool).Int("exit_code", toolErr.ExitCode).Str("stderr", out)
	}
	ev.Msg("media tool failed")
}
