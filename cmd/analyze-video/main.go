package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kdimtricp/tubely/internal/ingest"
	"github.com/kdimtricp/tubely/internal/log"
	"github.com/kdimtricp/tubely/internal/media"
	"github.com/kdimtricp/tubely/internal/storage"
)

func main() {
	var (
		file    = flag.String("file", "", "Video file to analyze")
		videoID = flag.String("id", "", "Optional video ID, prints the object key it would be stored under")
		ffprobe = flag.String("ffprobe", "ffprobe", "ffprobe binary")
		ffmpeg  = flag.String("ffmpeg", "ffmpeg", "ffmpeg binary")
		remux   = flag.Bool("remux", false, "Also run the fast-start remux and report the output size")
		timeout = flag.Duration("timeout", 30*time.Second, "Probe timeout")
	)
	flag.Parse()

	logger := log.WithComponent("analyze-video")
	if *file == "" {
		logger.Fatal().Msg("please provide a video file with -file")
	}
	if *videoID != "" {
		if err := ingest.ValidateVideoID(*videoID); err != nil {
			logger.Fatal().Err(err).Msg("invalid video ID")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	prober := media.NewProber(*ffprobe, media.NewLimiter(1))
	g, err := prober.Analyze(ctx, *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to analyze %s: %v\n", *file, err)
		os.Exit(1)
	}

	aspect := g.Aspect()
	fmt.Printf("File:   %s\n", *file)
	fmt.Printf("Size:   %dx%d\n", g.Width, g.Height)
	fmt.Printf("Aspect: %s\n", aspect)
	if *videoID != "" {
		fmt.Printf("Key:    %s\n", ingest.ObjectKey(string(aspect), *videoID))
	}

	if *remux {
		size, err := remuxSize(ctx, *ffmpeg, *file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to remux %s: %v\n", *file, err)
			os.Exit(1)
		}
		fmt.Printf("Remux:  %d bytes\n", size)
	}
}

// remuxSize remuxes a copy of path inside a scratch area so the input is never
// touched, and returns the size of the result.
func remuxSize(ctx context.Context, ffmpeg, path string) (int64, error) {
	space, err := storage.NewScratchSpace(filepath.Join(os.TempDir(), "tubely-analyze"))
	if err != nil {
		return 0, err
	}
	scratch, err := space.Acquire("analyze")
	if err != nil {
		return 0, err
	}
	defer scratch.Release()

	src, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := scratch.Create("input.mp4")
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return 0, err
	}
	if err := dst.Close(); err != nil {
		return 0, err
	}

	out, err := media.NewRemuxer(ffmpeg, media.NewLimiter(1)).Remux(ctx, dst.Name())
	if err != nil {
		return 0, err
	}
	fi, err := os.Stat(out)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
