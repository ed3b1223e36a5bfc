package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/filepool/pkg/store/content"
)

// MemoryContentStore implements WritableContentStore using in-memory storage.
//
// It's designed for:
//   - Testing and development
//   - Serving a small, fixed set of files seeded at startup
//
// Characteristics:
//   - Volatile: Data lost on restart
//   - Thread-safe: Protected by RWMutex
//   - Copy-on-read and copy-on-write, so callers never share buffers with the map
type MemoryContentStore struct {
	// data stores file bodies keyed by ContentID
	data map[content.ContentID][]byte

	// mu protects concurrent access to data
	mu sync.RWMutex
}

// NewMemoryContentStore creates an empty in-memory content store.
//
// Returns an error only if ctx is already cancelled.
func NewMemoryContentStore(ctx context.Context) (*MemoryContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryContentStore{
		data: make(map[content.ContentID][]byte),
	}, nil
}

// ReadContent returns a reader over a copy of the stored bytes.
func (s *MemoryContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[id]
	if !exists {
		return nil, fmt.Errorf("content %q: %w", id, content.ErrContentNotFound)
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	return io.NopCloser(bytes.NewReader(dataCopy)), nil
}

func (s *MemoryContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[id]
	if !exists {
		return 0, fmt.Errorf("content %q: %w", id, content.ErrContentNotFound)
	}

	return uint64(len(data)), nil
}

func (s *MemoryContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[id]
	return exists, nil
}

// GetStorageStats reports usage computed from the current map contents.
func (s *MemoryContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	usedSize := uint64(0)
	for _, data := range s.data {
		usedSize += uint64(len(data))
	}

	return content.NewStorageStats(usedSize, uint64(len(s.data))), nil
}

func (s *MemoryContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateID(id); err != nil {
		return fmt.Errorf("content %q: %w", id, err)
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[id] = dataCopy
	return nil
}

func (s *MemoryContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, id)
	return nil
}
