package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kdimtricp/tubely/internal/api"
	"github.com/kdimtricp/tubely/internal/auth"
	"github.com/kdimtricp/tubely/internal/config"
	"github.com/kdimtricp/tubely/internal/database"
	"github.com/kdimtricp/tubely/internal/events"
	"github.com/kdimtricp/tubely/internal/ingest"
	"github.com/kdimtricp/tubely/internal/log"
	"github.com/kdimtricp/tubely/internal/media"
	"github.com/kdimtricp/tubely/internal/metrics"
	"github.com/kdimtricp/tubely/internal/storage"
	"github.com/kdimtricp/tubely/internal/thumbnail"
)

// scratch directories older than this are left over from a crash
const staleScratchAge = time.Hour

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log.Configure(log.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	logger := log.WithComponent("main")
	cfg.Log(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := log.WithComponent("main")

	videos, closeVideos, err := openRecordStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeVideos()

	objects, reader, err := openObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	if err := objects.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("object store not reachable at startup")
	}

	thumbs, err := openThumbnailStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer thumbs.Close()

	publisher, err := openPublisher(ctx, cfg)
	if err != nil {
		return err
	}

	for _, bin := range []string{cfg.FFprobeBin, cfg.FFmpegBin} {
		if _, err := media.LookPath(bin); err != nil {
			logger.Warn().Err(err).Msg("media tool missing, uploads will fail")
		}
	}

	scratch, err := storage.NewScratchSpace(cfg.ScratchRoot)
	if err != nil {
		return err
	}
	if n, err := scratch.Sweep(staleScratchAge); err != nil {
		logger.Warn().Err(err).Msg("failed to sweep scratch space")
	} else if n > 0 {
		logger.Info().Int("removed", n).Msg("removed stale scratch directories")
	}

	validator := auth.NewJWTValidator(cfg.JWTSecret)
	lim := media.NewLimiter(cfg.MediaConcurrency)

	app := &api.App{
		Ingest: ingest.NewService(ingest.Deps{
			Auth:      validator,
			Records:   videos,
			Prober:    media.NewProber(cfg.FFprobeBin, lim),
			Remuxer:   media.NewRemuxer(cfg.FFmpegBin, lim),
			Objects:   objects,
			Scratch:   scratch,
			Publisher: publisher,
			Observer:  metrics.Ingest{},
		}, ingest.Options{
			MaxUploadSize:     cfg.MaxUploadSize,
			SerializePerVideo: cfg.SerializePerVideo,
		}),
		Auth:               validator,
		Videos:             videos,
		Objects:            objects,
		Issuer:             storage.NewURLIssuer(objects, cfg.PresignTTL),
		Thumbnails:         thumbs,
		ObjectReader:       reader,
		BaseURL:            cfg.BaseURL,
		MaxUploadSize:      cfg.MaxUploadSize,
		MaxThumbnailSize:   cfg.MaxThumbnailSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func openRecordStore(ctx context.Context, cfg *config.Config) (database.VideoStore, func(), error) {
	if cfg.RecordStore == "dynamodb" {
		repo, err := database.NewDynamoVideoRepository(ctx, cfg.DynamoTable, cfg.S3Region)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}

	db, err := database.NewDB(database.Config{
		Type:       cfg.RecordStore,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Name:       cfg.DBName,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database.NewVideoRepository(db), func() { db.Close() }, nil
}

func openObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, storage.ObjectReader, error) {
	if cfg.ObjectStore == "local" {
		local, err := storage.NewLocalStorage(cfg.LocalObjectRoot, cfg.BaseURL, cfg.JWTSecret)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize local object store: %w", err)
		}
		return local, local, nil
	}

	s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:   cfg.S3Bucket,
		Region:   cfg.S3Region,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		return nil, nil, err
	}
	return s3Store, nil, nil
}

func openThumbnailStore(ctx context.Context, cfg *config.Config) (thumbnail.Store, error) {
	switch cfg.ThumbnailStore {
	case "memory":
		return thumbnail.NewMemoryStore(), nil
	case "redis":
		return thumbnail.NewRedisStore(ctx, cfg.RedisAddr, 0)
	case "badger":
		return thumbnail.OpenBadgerStore(cfg.BadgerDir)
	default:
		return thumbnail.NewDiskStore(cfg.AssetsRoot)
	}
}

func openPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	if cfg.EventsQueueURL == "" {
		return events.NopPublisher{}, nil
	}
	return events.NewSQSPublisher(ctx, cfg.EventsQueueURL, cfg.S3Region)
}
