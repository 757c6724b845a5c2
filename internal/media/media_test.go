package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool writes an executable shell script standing in for ffprobe/ffmpeg.
func fakeTool(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestProber_Probe(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   AspectClass
	}{
		{"landscape", `{"programs":[],"streams":[{"width":1920,"height":1080}]}`, Landscape},
		{"portrait", `{"streams":[{"width":1080,"height":1920}]}`, Portrait},
		{"square", `{"streams":[{"width":500,"height":500}]}`, Other},
		{"zero height", `{"streams":[{"width":1920,"height":0}]}`, Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := fakeTool(t, "ffprobe", fmt.Sprintf("echo '%s'", tt.output))
			got, err := NewProber(bin, NewLimiter(1)).Probe(context.Background(), "/tmp/in.mp4")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProber_PassesPathAndStreamSelection(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := fakeTool(t, "ffprobe", fmt.Sprintf(`printf '%%s\n' "$@" > %s
echo '{"streams":[{"width":16,"height":9}]}'`, argsFile))

	_, err := NewProber(bin, nil).Analyze(context.Background(), "/data/video file.mp4")
	require.NoError(t, err)

	raw, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Equal(t, "/data/video file.mp4", args[len(args)-1])
	assert.Contains(t, args, "v:0")
	assert.Contains(t, args, "stream=width,height")
	assert.Contains(t, args, "json")
}

func TestProber_Failures(t *testing.T) {
	t.Run("nonzero exit carries stderr", func(t *testing.T) {
		bin := fakeTool(t, "ffprobe", `echo "moov atom not found" >&2
exit 1`)
		_, err := NewProber(bin, nil).Probe(context.Background(), "x.mp4")

		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "ffprobe", te.Tool)
		assert.Equal(t, 1, te.ExitCode)
		assert.Contains(t, te.Output, "moov atom not found")
		assert.Contains(t, err.Error(), "moov atom not found")
	})

	t.Run("malformed output", func(t *testing.T) {
		bin := fakeTool(t, "ffprobe", `echo 'not json'`)
		_, err := NewProber(bin, nil).Probe(context.Background(), "x.mp4")
		assert.ErrorIs(t, err, ErrMalformedOutput)
	})

	t.Run("no video stream", func(t *testing.T) {
		bin := fakeTool(t, "ffprobe", `echo '{"streams":[]}'`)
		_, err := NewProber(bin, nil).Probe(context.Background(), "x.mp4")
		assert.ErrorIs(t, err, ErrNoVideoStream)
	})

	t.Run("missing dimensions", func(t *testing.T) {
		bin := fakeTool(t, "ffprobe", `echo '{"streams":[{}]}'`)
		_, err := NewProber(bin, nil).Probe(context.Background(), "x.mp4")
		assert.ErrorIs(t, err, ErrNoVideoStream)
	})

	t.Run("binary missing", func(t *testing.T) {
		_, err := NewProber(filepath.Join(t.TempDir(), "absent"), nil).Probe(context.Background(), "x.mp4")
		var te *ToolError
		require.ErrorAs(t, err, &te)
		assert.Zero(t, te.ExitCode)
	})
}

func TestRemuxer_Remux(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.mp4")
	require.NoError(t, os.WriteFile(input, []byte("mdat...moov"), 0o644))

	argsFile := filepath.Join(t.TempDir(), "args")
	bin := fakeTool(t, "ffmpeg", fmt.Sprintf(`printf '%%s\n' "$@" > %s
for last; do :; done
printf 'moov...mdat' > "$last"`, argsFile))

	out, err := NewRemuxer(bin, NewLimiter(2)).Remux(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, input+RemuxSuffix, out)
	assert.FileExists(t, input, "input must survive for cleanup bookkeeping")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "moov...mdat", string(data))

	raw, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := string(raw)
	assert.Contains(t, args, "copy")
	assert.Contains(t, args, "faststart")
	assert.Contains(t, args, "-map_metadata")
}

func TestRemuxer_FailureRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.mp4")
	require.NoError(t, os.WriteFile(input, []byte("junk"), 0o644))

	bin := fakeTool(t, "ffmpeg", `for last; do :; done
printf 'partial' > "$last"
echo "Invalid data found when processing input" >&2
exit 183`)

	_, err := NewRemuxer(bin, nil).Remux(context.Background(), input)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 183, te.ExitCode)
	assert.Contains(t, te.Output, "Invalid data found")
	assert.NoFileExists(t, RemuxedPath(input))
}

func TestRemuxer_EmptyOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.mp4")
	require.NoError(t, os.WriteFile(input, []byte("junk"), 0o644))

	bin := fakeTool(t, "ffmpeg", `for last; do :; done
: > "$last"`)

	_, err := NewRemuxer(bin, nil).Remux(context.Background(), input)
	assert.True(t, errors.Is(err, ErrEmptyOutput))
	assert.NoFileExists(t, RemuxedPath(input))
}

func TestLimiter_HonoursContext(t *testing.T) {
	lim := NewLimiter(1)
	release, err := lim.acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = lim.acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(4)
	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, _ = b.Write([]byte("gh"))
	assert.Equal(t, "abcd", b.String())
}
