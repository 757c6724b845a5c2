package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kdimtricp/tubely/internal/config"
	"github.com/kdimtricp/tubely/internal/database"
	"github.com/kdimtricp/tubely/internal/log"
	"github.com/kdimtricp/tubely/internal/media"
	"github.com/kdimtricp/tubely/internal/storage"
	"github.com/kdimtricp/tubely/internal/thumbnail"
)

type check struct {
	name string
	fn   func(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.Configure(log.Config{Level: "warn"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("🔍 Checking tubely dependencies")
	fmt.Println("===============================")

	checks := []check{
		{"ffprobe", func(context.Context) error { _, err := media.LookPath(cfg.FFprobeBin); return err }},
		{"ffmpeg", func(context.Context) error { _, err := media.LookPath(cfg.FFmpegBin); return err }},
		{"record store (" + cfg.RecordStore + ")", func(ctx context.Context) error { return pingRecords(ctx, cfg) }},
		{"object store (" + cfg.ObjectStore + ")", func(ctx context.Context) error { return pingObjects(ctx, cfg) }},
		{"thumbnail store (" + cfg.ThumbnailStore + ")", func(ctx context.Context) error { return pingThumbnails(ctx, cfg) }},
	}

	failed := 0
	for _, c := range checks {
		if err := c.fn(ctx); err != nil {
			failed++
			fmt.Printf("❌ %s: %v\n", c.name, err)
			continue
		}
		fmt.Printf("✅ %s\n", c.name)
	}

	if failed > 0 {
		fmt.Printf("\n%d check(s) failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("\nAll dependencies reachable.")
}

func pingRecords(ctx context.Context, cfg *config.Config) error {
	if cfg.RecordStore == "dynamodb" {
		repo, err := database.NewDynamoVideoRepository(ctx, cfg.DynamoTable, cfg.S3Region)
		if err != nil {
			return err
		}
		return repo.Ping(ctx)
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
		return err
	}
	defer db.Close()
	return db.Ping(ctx)
}

func pingObjects(ctx context.Context, cfg *config.Config) error {
	if cfg.ObjectStore == "local" {
		local, err := storage.NewLocalStorage(cfg.LocalObjectRoot, cfg.BaseURL, cfg.JWTSecret)
		if err != nil {
			return err
		}
		return local.Ping(ctx)
	}

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:   cfg.S3Bucket,
		Region:   cfg.S3Region,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// pingThumbnails opens the configured store; each backend verifies it can be
// reached while opening.
func pingThumbnails(ctx context.Context, cfg *config.Config) error {
	var (
		store thumbnail.Store
		err   error
	)
	switch cfg.ThumbnailStore {
	case "memory":
		return nil
	case "redis":
		store, err = thumbnail.NewRedisStore(ctx, cfg.RedisAddr, 0)
	case "badger":
		store, err = thumbnail.OpenBadgerStore(cfg.BadgerDir)
	default:
		store, err = thumbnail.NewDiskStore(cfg.AssetsRoot)
	}
	if err != nil {
		return err
	}
	return store.Close()
}
