// Package badger implements content storage on an embedded BadgerDB.
//
// Every file body is one value under the key "content:<id>". Badger keeps
// the database in a single directory, which makes it a convenient backend
// for serving a seeded set of files from a self-contained data directory.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/filepool/internal/logger"
	"github.com/marmos91/filepool/pkg/store/content"
)

const keyPrefix = "content:"

// BadgerContentStore implements WritableContentStore on BadgerDB.
//
// Thread Safety:
// Badger transactions are safe for concurrent use; the store adds no locking.
type BadgerContentStore struct {
	db *badger.DB
}

// BadgerContentStoreConfig configures a BadgerContentStore.
type BadgerContentStoreConfig struct {
	// DBPath is the database directory. Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database entirely in RAM (for tests).
	InMemory bool `mapstructure:"in_memory"`

	// BadgerOptions overrides every other setting when non-nil.
	BadgerOptions *badger.Options
}

// NewBadgerContentStore opens (or creates) the database.
func NewBadgerContentStore(ctx context.Context, config BadgerContentStoreConfig) (*BadgerContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	switch {
	case config.BadgerOptions != nil:
		opts = *config.BadgerOptions
	case config.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	default:
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger db_path is required")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	logger.Debug("Badger content store opened (path=%q, in_memory=%t)", config.DBPath, config.InMemory)

	return &BadgerContentStore{db: db}, nil
}

func contentKey(id content.ContentID) []byte {
	return []byte(keyPrefix + string(id))
}

// ReadContent copies the value out of the transaction and returns a reader
// over it.
func (s *BadgerContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := content.ValidateID(id); err != nil {
		return nil, fmt.Errorf("content %q: %w", id, err)
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(contentKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, mapError(id, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BadgerContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := content.ValidateID(id); err != nil {
		return 0, fmt.Errorf("content %q: %w", id, err)
	}

	var size int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(contentKey(id))
		if err != nil {
			return err
		}
		size = item.ValueSize()
		return nil
	})
	if err != nil {
		return 0, mapError(id, err)
	}

	return uint64(size), nil
}

func (s *BadgerContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, err := s.GetContentSize(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, content.ErrContentNotFound), errors.Is(err, content.ErrInvalidContentID):
		return false, nil
	default:
		return false, err
	}
}

// GetStorageStats iterates the content keys without fetching values.
func (s *BadgerContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var used, count uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			used += uint64(it.Item().ValueSize())
			count++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan badger content: %w", err)
	}

	return content.NewStorageStats(used, count), nil
}

func (s *BadgerContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateID(id); err != nil {
		return fmt.Errorf("content %q: %w", id, err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(contentKey(id), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", id, err)
	}
	return nil
}

func (s *BadgerContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateID(id); err != nil {
		return fmt.Errorf("content %q: %w", id, err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(contentKey(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", id, err)
	}
	return nil
}

// Close flushes and closes the database.
func (s *BadgerContentStore) Close() error {
	return s.db.Close()
}

func mapError(id content.ContentID, err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("content %q: %w", id, content.ErrContentNotFound)
	}
	return fmt.Errorf("failed to read %q: %w", id, err)
}
