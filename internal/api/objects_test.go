package api

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/tubely/internal/models"
)

// uploadLocal runs an upload against the disk object store and returns the
// signed URL the read path hands out.
func uploadLocal(t *testing.T, ts *TestServer, content []byte) string {
	t.Helper()
	video := ts.createVideo(t, ownerID)
	token := tokenFor(t, ownerID)

	resp := ts.uploadVideo(t, video.ID, token, content)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/videos/"+video.ID, token, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.Video](t, resp)
	require.NotNil(t, got.StorageKey)
	require.True(t, strings.HasPrefix(*got.StorageKey, ts.App.BaseURL+"/objects/landscape/"), *got.StorageKey)
	return *got.StorageKey
}

func TestServeObject_SignedURL(t *testing.T) {
	ts := setupTestServer(t, testOptions{localObjects: true})
	signed := uploadLocal(t, ts, []byte("0123456789"))

	resp, err := http.Get(signed)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
}

func TestServeObject_Range(t *testing.T) {
	ts := setupTestServer(t, testOptions{localObjects: true})
	signed := uploadLocal(t, ts, []byte("0123456789"))

	req, err := http.NewRequest(http.MethodGet, signed, nil)
	require.NoError(t, err)
	req.Header.Set("Range", "bytes=2-5")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusPartialContent, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(data))
}

func TestServeObject_RejectsTampering(t *testing.T) {
	ts := setupTestServer(t, testOptions{localObjects: true})
	signed := uploadLocal(t, ts, []byte("clip"))

	u, err := url.Parse(signed)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(u url.URL) string
	}{
		{"bad signature", func(u url.URL) string {
			q := u.Query()
			q.Set("signature", "forged")
			u.RawQuery = q.Encode()
			return u.String()
		}},
		{"extended expiry", func(u url.URL) string {
			q := u.Query()
			q.Set("expires", "9999999999")
			u.RawQuery = q.Encode()
			return u.String()
		}},
		{"other key", func(u url.URL) string {
			u.Path = strings.Replace(u.Path, "landscape", "portrait", 1)
			return u.String()
		}},
		{"unsigned", func(u url.URL) string {
			u.RawQuery = ""
			return u.String()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(tt.mutate(*u))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestServeObject_DisabledForS3(t *testing.T) {
	ts := setupTestServer(t, testOptions{})

	resp := ts.do(t, http.MethodGet, "/objects/landscape/x.mp4", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
