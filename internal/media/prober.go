package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNoVideoStream   = errors.New("no video stream found")
	ErrMalformedOutput = errors.New("malformed ffprobe output")
)

// Prober reads stream geometry with ffprobe.
type Prober struct {
	Bin     string
	Limiter *Limiter
}

func NewProber(bin string, lim *Limiter) *Prober {
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{Bin: bin, Limiter: lim}
}

// Analyze returns the width and height of the first video stream in path.
func (p *Prober) Analyze(ctx context.Context, path string) (Geometry, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	}

	var stdout bytes.Buffer
	stderr := newCappedBuffer(maxDiagnostic)
	if err := run(ctx, p.Limiter, p.Bin, args, &stdout, stderr); err != nil {
		return Geometry{}, toolError("ffprobe", err, stderr.String())
	}

	return parseGeometry(stdout.Bytes())
}

// Probe classifies the aspect ratio of the video at path.
func (p *Prober) Probe(ctx context.Context, path string) (AspectClass, error) {
	g, err := p.Analyze(ctx, path)
	if err != nil {
		return "", err
	}
	return g.Aspect(), nil
}

func parseGeometry(out []byte) (Geometry, error) {
	var data struct {
		Streams []struct {
			Width  *int `json:"width"`
			Height *int `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &data); err != nil {
		return Geometry{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if len(data.Streams) == 0 {
		return Geometry{}, ErrNoVideoStream
	}

	s := data.Streams[0]
	if s.Width == nil || s.Height == nil {
		return Geometry{}, fmt.Errorf("%w: missing width/height", ErrNoVideoStream)
	}
	return Geometry{Width: *s.Width, Height: *s.Height}, nil
}
