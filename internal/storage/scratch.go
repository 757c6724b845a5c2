package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const scratchPrefix = "ingest-"

// ScratchSpace hands out per-request directories under a shared root.
type ScratchSpace struct {
	root string
}

func NewScratchSpace(root string) (*ScratchSpace, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}
	return &ScratchSpace{root: root}, nil
}

func (s *ScratchSpace) Root() string {
	return s.root
}

// Acquire creates a fresh directory named after owner plus a random suffix.
// The caller must Release it; concurrent acquisitions for the same owner
// never share a directory.
func (s *ScratchSpace) Acquire(owner string) (*Scratch, error) {
	dir, err := os.MkdirTemp(s.root, scratchPrefix+sanitize(owner)+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

// Sweep removes scratch directories older than age, left behind by a crashed process.
func (s *ScratchSpace) Sweep(age time.Duration) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("failed to read scratch root: %w", err)
	}
	cutoff := time.Now().Add(-age)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), scratchPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Scratch is a request-scoped directory holding temporary artifacts.
type Scratch struct {
	dir  string
	once sync.Once
	err  error
}

func (s *Scratch) Dir() string {
	return s.dir
}

// Path returns name inside the scratch directory.
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Create opens a new file inside the scratch directory.
func (s *Scratch) Create(name string) (*os.File, error) {
	return os.OpenFile(s.Path(name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
}

// Release removes the directory and everything in it. It is safe to call
// more than once; a directory that is already gone is not an error.
func (s *Scratch) Release() error {
	s.once.Do(func() {
		if err := os.RemoveAll(s.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.err = fmt.Errorf("failed to remove scratch directory: %w", err)
		}
	})
	return s.err
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
