package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/tubely/internal/auth"
	"github.com/kdimtricp/tubely/internal/database"
	"github.com/kdimtricp/tubely/internal/ingest"
	"github.com/kdimtricp/tubely/internal/media"
	"github.com/kdimtricp/tubely/internal/metrics"
	"github.com/kdimtricp/tubely/internal/models"
	"github.com/kdimtricp/tubely/internal/storage"
	"github.com/kdimtricp/tubely/internal/thumbnail"
)

const (
	testSecret = "test-jwt-secret"
	ownerID    = "11111111-1111-4111-8111-111111111111"
	strangerID = "22222222-2222-4222-8222-222222222222"

	probeLandscape = `echo '{"streams":[{"width":1920,"height":1080}]}'`
	// copies the input (-i is the 6th argument) to the last argument
	remuxCopy = `for last; do :; done
cp "$6" "$last"`
)

type testOptions struct {
	localObjects bool
	probe        string
	remux        string
	maxUpload    int64
	maxThumbnail int64
	rateLimit    int
}

type TestServer struct {
	Server  *httptest.Server
	App     *App
	Videos  database.VideoStore
	S3      *fakeS3
	Scratch string
	Stages  *stageRecorder
}

// stageRecorder notes which pipeline stages ran.
type stageRecorder struct {
	metrics.Ingest
	mu     sync.Mutex
	stages []string
}

func (s *stageRecorder) ObserveStage(stage string, d time.Duration) {
	s.mu.Lock()
	s.stages = append(s.stages, stage)
	s.mu.Unlock()
	s.Ingest.ObserveStage(stage, d)
}

func (s *stageRecorder) ran() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stages...)
}

// fakeS3 records object writes made through the S3 API.
type fakeS3 struct {
	*httptest.Server
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3(t *testing.T) *fakeS3 {
	f := &fakeS3{objects: map[string][]byte{}}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			f.objects[r.URL.Path] = body
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			delete(f.objects, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeS3) object(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[path]
	return b, ok
}

func fakeTool(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func setupTestServer(t *testing.T, opts testOptions) *TestServer {
	t.Helper()
	tempDir := t.TempDir()
	if opts.probe == "" {
		opts.probe = probeLandscape
	}
	if opts.remux == "" {
		opts.remux = remuxCopy
	}
	if opts.maxUpload == 0 {
		opts.maxUpload = 10 << 20
	}
	if opts.maxThumbnail == 0 {
		opts.maxThumbnail = thumbnail.MaxSize
	}

	db, err := database.NewDB(database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(tempDir, "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), ""))
	videos := database.NewVideoRepository(db)

	scratchRoot := filepath.Join(tempDir, "scratch")
	scratch, err := storage.NewScratchSpace(scratchRoot)
	require.NoError(t, err)

	ts := &TestServer{Videos: videos, Scratch: scratchRoot, Stages: &stageRecorder{}}
	app := &App{
		Auth:               auth.NewJWTValidator(testSecret),
		Videos:             videos,
		Thumbnails:         thumbnail.NewMemoryStore(),
		MaxUploadSize:      opts.maxUpload,
		MaxThumbnailSize:   opts.maxThumbnail,
		RateLimitPerMinute: opts.rateLimit,
	}

	// bind first so the public base URL is known before wiring
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	app.BaseURL = "http://" + listener.Addr().String()

	if opts.localObjects {
		local, err := storage.NewLocalStorage(filepath.Join(tempDir, "objects"), app.BaseURL, testSecret)
		require.NoError(t, err)
		app.Objects = local
		app.ObjectReader = local
	} else {
		ts.S3 = newFakeS3(t)
		client := s3.New(s3.Options{
			Region:           "us-east-1",
			Credentials:      credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
			BaseEndpoint:     aws.String(ts.S3.URL),
			UsePathStyle:     true,
			RetryMaxAttempts: 1,
		})
		app.Objects = storage.NewS3StoreFromClient(client, "tubely")
	}
	app.Issuer = storage.NewURLIssuer(app.Objects, 5*time.Minute)

	lim := media.NewLimiter(2)
	app.Ingest = ingest.NewService(ingest.Deps{
		Auth:     app.Auth,
		Records:  videos,
		Prober:   media.NewProber(fakeTool(t, "ffprobe", opts.probe), lim),
		Remuxer:  media.NewRemuxer(fakeTool(t, "ffmpeg", opts.remux), lim),
		Objects:  app.Objects,
		Scratch:  scratch,
		Observer: ts.Stages,
	}, ingest.Options{MaxUploadSize: opts.maxUpload})

	ts.App = app
	ts.Server = &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: NewRouter(app)},
	}
	ts.Server.Start()
	t.Cleanup(ts.Server.Close)
	return ts
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.MakeJWT(userID, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *TestServer) createVideo(t *testing.T, owner string) *models.Video {
	t.Helper()
	v := models.NewVideo(owner, "Test Video", "A test video")
	require.NoError(t, ts.Videos.InsertVideo(context.Background(), v))
	return v
}

func (ts *TestServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.Server.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// multipartBody builds a form with one file part.
func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (ts *TestServer) uploadVideo(t *testing.T, videoID, token string, content []byte) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, "video", "clip.mp4", "video/mp4", content)
	return ts.do(t, http.MethodPost, "/api/video_upload/"+videoID, token, body, ct)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *TestServer) scratchEntries(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(ts.Scratch)
	require.NoError(t, err)
	return entries
}
