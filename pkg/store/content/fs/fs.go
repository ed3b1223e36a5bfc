// Package fs implements filesystem-based content storage.
//
// Content IDs are file names relative to a base directory. All access goes
// through an os.Root, so names that would resolve outside the base directory
// (absolute paths, "..", symlinks pointing out) are reported as not found
// instead of being opened.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/filepool/pkg/store/content"
)

// FSContentStore implements WritableContentStore on the local filesystem.
//
// Thread Safety:
// Reads are safe for concurrent use. Concurrent writes to the same name are
// last-write-wins at the OS level.
type FSContentStore struct {
	basePath string
	root     *os.Root
}

// NewFSContentStore opens basePath as the content root, creating it with
// permissions 0755 if it doesn't exist.
//
// Parameters:
//   - ctx: Context for cancellation (checked before touching the filesystem)
//   - basePath: Directory files are served from
//
// Returns:
//   - *FSContentStore: Store rooted at basePath (Close releases the root)
//   - error: Directory creation or open failure, or context cancellation
func NewFSContentStore(ctx context.Context, basePath string) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	root, err := os.OpenRoot(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open base directory %s: %w", basePath, err)
	}

	return &FSContentStore{
		basePath: basePath,
		root:     root,
	}, nil
}

// BasePath returns the directory content is served from.
func (r *FSContentStore) BasePath() string {
	return r.basePath
}

// ReadContent opens the named file for reading.
//
// Directories, missing files and names escaping the root all wrap
// content.ErrContentNotFound.
func (r *FSContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := content.ValidateID(id); err != nil {
		return nil, fmt.Errorf("content %q: %w", id, err)
	}

	f, err := r.root.Open(string(id))
	if err != nil {
		return nil, mapOpenError(id, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat %q: %w", id, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("content %q is a directory: %w", id, content.ErrContentNotFound)
	}

	return f, nil
}

// GetContentSize returns the size of the named regular file.
func (r *FSContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := content.ValidateID(id); err != nil {
		return 0, fmt.Errorf("content %q: %w", id, err)
	}

	info, err := r.root.Stat(string(id))
	if err != nil {
		return 0, mapOpenError(id, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("content %q is a directory: %w", id, content.ErrContentNotFound)
	}

	return uint64(info.Size()), nil
}

// ContentExists reports whether a regular file exists under the name.
func (r *FSContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, err := r.GetContentSize(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, content.ErrContentNotFound), errors.Is(err, content.ErrInvalidContentID):
		return false, nil
	default:
		return false, err
	}
}

// GetStorageStats walks the base directory and totals regular files.
//
// TotalSize and AvailableSize are reported as unlimited; disk capacity is
// not queried.
func (r *FSContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var used, count uint64
	err := iofs.WalkDir(r.root.FS(), ".", func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		used += uint64(info.Size())
		count++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", r.basePath, err)
	}

	return content.NewStorageStats(used, count), nil
}

// WriteContent writes data to the named file, creating parent directories.
func (r *FSContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateID(id); err != nil {
		return fmt.Errorf("content %q: %w", id, err)
	}

	name := string(id)
	if dir := filepath.Dir(name); dir != "." {
		if err := r.root.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for %q: %w", id, err)
		}
	}

	if err := r.root.WriteFile(name, data, 0644); err != nil {
		return fmt.Errorf("failed to write %q: %w", id, err)
	}
	return nil
}

// Delete removes the named file. A missing file is not an error.
func (r *FSContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := content.ValidateID(id); err != nil {
		return fmt.Errorf("content %q: %w", id, err)
	}

	if err := r.root.Remove(string(id)); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("failed to delete %q: %w", id, err)
	}
	return nil
}

// Close releases the root directory handle.
func (r *FSContentStore) Close() error {
	return r.root.Close()
}

// mapOpenError folds "no such file" and "escapes the root" into
// ErrContentNotFound; anything else is a storage failure.
func mapOpenError(id content.ContentID, err error) error {
	if errors.Is(err, iofs.ErrNotExist) || isEscapeError(err) {
		return fmt.Errorf("content %q: %w", id, content.ErrContentNotFound)
	}
	return fmt.Errorf("failed to open %q: %w", id, err)
}

// isEscapeError reports whether err came from a name resolving outside the
// root. os.Root reports this as a *PathError without a dedicated sentinel.
func isEscapeError(err error) bool {
	var pathErr *iofs.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	return pathErr.Err != nil && pathErr.Err.Error() == "path escapes from parent"
}
