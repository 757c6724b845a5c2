package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// LocalStorage keeps objects on the local filesystem and signs its own
// download URLs. It backs development setups without a bucket.
type LocalStorage struct {
	basePath string
	baseURL  string
	secret   []byte
	now      func() time.Time
}

var (
	_ ObjectStore  = (*LocalStorage)(nil)
	_ ObjectReader = (*LocalStorage)(nil)
)

// NewLocalStorage serves objects from basePath. Signed URLs are rooted at
// baseURL + "/objects/".
func NewLocalStorage(basePath, baseURL, secret string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   []byte(secret),
		now:      time.Now,
	}, nil
}

func (ls *LocalStorage) resolve(key string) (string, error) {
	cleanPath := filepath.Clean(key)
	if key == "" || strings.Contains(cleanPath, "..") || filepath.IsAbs(cleanPath) {
		return "", ErrInvalidKey
	}
	return filepath.Join(ls.basePath, cleanPath), nil
}

func (ls *LocalStorage) PutFile(_ context.Context, key, path, _ string) error {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	dst, err := renameio.TempFile("", fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Cleanup()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to commit file: %w", err)
	}
	return nil
}

func (ls *LocalStorage) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if _, err := ls.resolve(key); err != nil {
		return "", err
	}
	expires := strconv.FormatInt(ls.now().Add(ttl).Unix(), 10)

	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	q := url.Values{}
	q.Set("expires", expires)
	q.Set("signature", ls.sign(key, expires))
	return fmt.Sprintf("%s/objects/%s?%s", ls.baseURL, strings.Join(segments, "/"), q.Encode()), nil
}

// Verify checks a signature produced by PresignGet.
func (ls *LocalStorage) Verify(key, expires, signature string, now time.Time) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal([]byte(signature), []byte(ls.sign(key, expires))) {
		return ErrInvalidSignature
	}
	if now.Unix() > exp {
		return ErrExpiredSignature
	}
	return nil
}

func (ls *LocalStorage) sign(key, expires string) string {
	mac := hmac.New(sha256.New, ls.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(expires))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (ls *LocalStorage) Open(key string) (io.ReadSeekCloser, time.Time, error) {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return nil, time.Time{}, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, ErrObjectNotFound
		}
		return nil, time.Time{}, fmt.Errorf("failed to open file: %w", err)
	}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, time.Time{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if fi.IsDir() {
		file.Close()
		return nil, time.Time{}, ErrObjectNotFound
	}
	return file, fi.ModTime(), nil
}

func (ls *LocalStorage) Delete(_ context.Context, key string) error {
	fullPath, err := ls.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (ls *LocalStorage) Ping(context.Context) error {
	fi, err := os.Stat(ls.basePath)
	if err != nil {
		return fmt.Errorf("storage root unavailable: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", ls.basePath)
	}
	return nil
}
