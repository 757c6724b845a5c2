package media

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// RemuxSuffix is appended to the input path to name the remuxed output.
const RemuxSuffix = ".processing"

var ErrEmptyOutput = errors.New("remux produced no output")

// Remuxer rewrites an MP4 container for fast-start playback without re-encoding.
type Remuxer struct {
	Bin     string
	Limiter *Limiter
}

func NewRemuxer(bin string, lim *Limiter) *Remuxer {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Remuxer{Bin: bin, Limiter: lim}
}

// RemuxedPath is the output path Remux writes for input.
func RemuxedPath(input string) string {
	return input + RemuxSuffix
}

// Remux copies the streams and metadata of input into a new file with the
// moov atom moved to the front, returning the new path. A partial output is
// removed when ffmpeg fails.
func (r *Remuxer) Remux(ctx context.Context, input string) (string, error) {
	output := RemuxedPath(input)
	args := []string{
		"-nostdin",
		"-y",
		"-v", "error",
		"-i", input,
		"-map_metadata", "0",
		"-c", "copy",
		"-movflags", "faststart",
		"-f", "mp4",
		output,
	}

	diag := newCappedBuffer(maxDiagnostic)
	if err := run(ctx, r.Limiter, r.Bin, args, diag, diag); err != nil {
		removeQuiet(output)
		return "", toolError("ffmpeg", err, diag.String())
	}

	fi, err := os.Stat(output)
	if err != nil {
		return "", toolError("ffmpeg", fmt.Errorf("%w: %v", ErrEmptyOutput, err), diag.String())
	}
	if fi.Size() == 0 {
		removeQuiet(output)
		return "", toolError("ffmpeg", ErrEmptyOutput, diag.String())
	}
	return output, nil
}

func removeQuiet(path string) {
	_ = os.Remove(path)
}
