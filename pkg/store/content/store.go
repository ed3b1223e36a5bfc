// Package content defines the storage abstraction files are served from.
//
// A ContentStore maps the name a client asks for to a byte stream. The
// protocol layer never touches the filesystem directly: whether a name
// resolves to a file under a base directory, an in-memory map entry, a
// BadgerDB key or an S3 object is the store's business.
package content

import (
	"context"
	"io"
)

// ContentID identifies a piece of content. For the file server it is the
// requested file name, used verbatim (no trimming, no normalization) so the
// backend decides what the name resolves to.
type ContentID string

// ============================================================================
// ContentStore Interface
// ============================================================================

// ContentStore provides read access to named content.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines;
// every worker in the pool shares the same store.
type ContentStore interface {
	// ReadContent returns a reader for the content identified by id.
	//
	// The caller is responsible for closing the reader. Returns an error
	// wrapping ErrContentNotFound when nothing is stored under id, and
	// ErrInvalidContentID when id can never name content on this backend.
	ReadContent(ctx context.Context, id ContentID) (io.ReadCloser, error)

	// GetContentSize returns the size of the content in bytes.
	GetContentSize(ctx context.Context, id ContentID) (uint64, error)

	// ContentExists reports whether content is stored under id.
	//
	// Only storage access failures are returned as errors; a missing id is
	// (false, nil).
	ContentExists(ctx context.Context, id ContentID) (bool, error)

	// GetStorageStats returns usage statistics for the backend.
	GetStorageStats(ctx context.Context) (*StorageStats, error)
}

// ============================================================================
// WritableContentStore Interface
// ============================================================================

// WritableContentStore extends ContentStore with whole-object writes.
//
// The server itself never writes; writes are used by `filepool import` to
// seed a backend and by tests.
type WritableContentStore interface {
	ContentStore

	// WriteContent stores data under id, replacing any previous content.
	WriteContent(ctx context.Context, id ContentID, data []byte) error

	// Delete removes the content stored under id. Deleting a missing id
	// succeeds.
	Delete(ctx context.Context, id ContentID) error
}

// StorageStats describes backend usage.
//
// Backends without a meaningful capacity report TotalSize and AvailableSize
// as ^uint64(0).
type StorageStats struct {
	TotalSize     uint64
	UsedSize      uint64
	AvailableSize uint64
	ContentCount  uint64
	AverageSize   uint64
}

// NewStorageStats builds stats for an unbounded backend from its used size
// and object count.
func NewStorageStats(usedSize, contentCount uint64) *StorageStats {
	averageSize := uint64(0)
	if contentCount > 0 {
		averageSize = usedSize / contentCount
	}

	return &StorageStats{
		TotalSize:     ^uint64(0),
		UsedSize:      usedSize,
		AvailableSize: ^uint64(0),
		ContentCount:  contentCount,
		AverageSize:   averageSize,
	}
}

// ValidateID rejects identifiers no backend can store.
func ValidateID(id ContentID) error {
	if id == "" {
		return ErrInvalidContentID
	}
	return nil
}
