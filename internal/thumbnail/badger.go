package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps thumbnails in an embedded badger database. Values are
// the media type, a newline, then the image bytes.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens the database in dir, or an in-memory one when dir is empty.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(videoID string) []byte {
	return []byte("thumbnail/" + videoID)
}

func (b *BadgerStore) Put(_ context.Context, videoID string, t Thumbnail) error {
	val := make([]byte, 0, len(t.MediaType)+1+len(t.Data))
	val = append(val, t.MediaType...)
	val = append(val, '\n')
	val = append(val, t.Data...)

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(videoID), val)
	})
}

func (b *BadgerStore) Get(_ context.Context, videoID string) (Thumbnail, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(videoID))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Thumbnail{}, ErrNotFound
	}
	if err != nil {
		return Thumbnail{}, fmt.Errorf("failed to load thumbnail: %w", err)
	}

	mediaType, data, ok := bytes.Cut(val, []byte{'\n'})
	if !ok {
		return Thumbnail{}, fmt.Errorf("corrupt thumbnail record for %s", videoID)
	}
	return Thumbnail{Data: data, MediaType: string(mediaType)}, nil
}

func (b *BadgerStore) Delete(_ context.Context, videoID string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(videoID))
	})
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
