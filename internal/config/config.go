// Package config loads service configuration from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// MaxUploadSize is the hard ceiling for video uploads; configuration may only lower it.
const MaxUploadSize int64 = 1 << 30

type Config struct {
	Port    int    `yaml:"port" env:"PORT" validate:"gt=0,lte=65535"`
	BaseURL string `yaml:"base_url" env:"BASE_URL" validate:"omitempty,url"`

	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" validate:"required"`

	AssetsRoot       string        `yaml:"assets_root" env:"ASSETS_ROOT" validate:"required"`
	ScratchRoot      string        `yaml:"scratch_root" env:"SCRATCH_ROOT" validate:"required"`
	MaxUploadSize    int64         `yaml:"max_upload_size" env:"MAX_UPLOAD_SIZE" validate:"gt=0,lte=1073741824"`
	MaxThumbnailSize int64         `yaml:"max_thumbnail_size" env:"MAX_THUMBNAIL_SIZE" validate:"gt=0"`
	PresignTTL       time.Duration `yaml:"presign_ttl" env:"PRESIGN_TTL" validate:"min=1s,max=1h"`

	RecordStore   string `yaml:"record_store" env:"RECORD_STORE" validate:"oneof=sqlite postgres dynamodb"`
	SQLitePath    string `yaml:"db_path" env:"DB_PATH" validate:"required_if=RecordStore sqlite"`
	DBHost        string `yaml:"db_host" env:"DB_HOST"`
	DBPort        int    `yaml:"db_port" env:"DB_PORT" validate:"gte=0,lte=65535"`
	DBUser        string `yaml:"db_user" env:"DB_USER"`
	DBPassword    string `yaml:"db_password" env:"DB_PASSWORD"`
	DBName        string `yaml:"db_name" env:"DB_NAME"`
	DynamoTable   string `yaml:"dynamodb_table" env:"DYNAMODB_TABLE" validate:"required_if=RecordStore dynamodb"`
	MigrationsDir string `yaml:"migrations_dir" env:"MIGRATIONS_PATH"`

	ObjectStore     string `yaml:"object_store" env:"OBJECT_STORE" validate:"oneof=s3 local"`
	S3Bucket        string `yaml:"s3_bucket" env:"S3_BUCKET" validate:"required_if=ObjectStore s3"`
	S3Region        string `yaml:"s3_region" env:"S3_REGION" validate:"required_if=ObjectStore s3"`
	S3Endpoint      string `yaml:"s3_endpoint" env:"S3_ENDPOINT" validate:"omitempty,url"`
	LocalObjectRoot string `yaml:"local_object_root" env:"LOCAL_OBJECT_ROOT" validate:"required_if=ObjectStore local"`

	ThumbnailStore string `yaml:"thumbnail_store" env:"THUMBNAIL_STORE" validate:"oneof=disk memory redis badger"`
	RedisAddr      string `yaml:"redis_addr" env:"REDIS_ADDR" validate:"required_if=ThumbnailStore redis"`
	BadgerDir      string `yaml:"badger_dir" env:"BADGER_DIR" validate:"required_if=ThumbnailStore badger"`

	FFprobeBin        string `yaml:"ffprobe_bin" env:"FFPROBE_BIN" validate:"required"`
	FFmpegBin         string `yaml:"ffmpeg_bin" env:"FFMPEG_BIN" validate:"required"`
	MediaConcurrency  int    `yaml:"media_concurrency" env:"MEDIA_CONCURRENCY" validate:"gte=1,lte=64"`
	SerializePerVideo bool   `yaml:"serialize_per_video" env:"SERIALIZE_PER_VIDEO"`

	EventsQueueURL     string `yaml:"events_queue_url" env:"EVENTS_QUEUE_URL" validate:"omitempty,url"`
	RateLimitPerMinute int    `yaml:"upload_rate_limit" env:"UPLOAD_RATE_LIMIT" validate:"gte=0"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	LogFile  string `yaml:"log_file" env:"LOG_FILE"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// Default returns the built-in configuration. JWTSecret and S3Bucket have no default.
func Default() *Config {
	return &Config{
		Port:               8091,
		AssetsRoot:         "./assets",
		ScratchRoot:        filepath.Join(os.TempDir(), "tubely"),
		MaxUploadSize:      MaxUploadSize,
		MaxThumbnailSize:   10 << 20,
		PresignTTL:         5 * time.Minute,
		RecordStore:        "sqlite",
		SQLitePath:         "./tubely.db",
		DBHost:             "localhost",
		DBPort:             5432,
		DBUser:             "tubely",
		DBPassword:         "tubely_dev",
		DBName:             "tubely",
		DynamoTable:        "tubely-videos",
		ObjectStore:        "s3",
		S3Region:           "us-east-1",
		LocalObjectRoot:    "./objects",
		ThumbnailStore:     "disk",
		RedisAddr:          "localhost:6379",
		BadgerDir:          "./thumbnails.badger",
		FFprobeBin:         "ffprobe",
		FFmpegBin:          "ffmpeg",
		MediaConcurrency:   4,
		RateLimitPerMinute: 30,
		LogLevel:           "info",
		ShutdownTimeout:    30 * time.Second,
	}
}

// Load builds the configuration. An empty path falls back to $TUBELY_CONFIG;
// with neither set no YAML file is read.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TUBELY_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and reports all failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Log writes the effective configuration at info level with secrets masked.
func (c *Config) Log(logger zerolog.Logger) {
	logger.Info().
		Int("port", c.Port).
		Str("base_url", c.BaseURL).
		Str("jwt_secret", mask(c.JWTSecret)).
		Str("record_store", c.RecordStore).
		Str("object_store", c.ObjectStore).
		Str("s3_bucket", c.S3Bucket).
		Str("s3_region", c.S3Region).
		Str("thumbnail_store", c.ThumbnailStore).
		Str("scratch_root", c.ScratchRoot).
		Int64("max_upload_size", c.MaxUploadSize).
		Dur("presign_ttl", c.PresignTTL).
		Int("media_concurrency", c.MediaConcurrency).
		Bool("serialize_per_video", c.SerializePerVideo).
		Bool("events_enabled", c.EventsQueueURL != "").
		Msg("configuration loaded")
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
