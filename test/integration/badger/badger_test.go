//go:build integration

package badger_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/marmos91/filepool/pkg/store/content"
	"github.com/marmos91/filepool/pkg/store/content/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBadgerContentStore_Integration runs integration tests for the on-disk
// BadgerDB content store.
//
// Prerequisites:
//   - None (BadgerDB is embedded, no external services needed)
//   - Run with: go test -tags=integration ./test/integration/badger/...
//
// These tests verify that the store:
//   - Can be created on disk
//   - Persists files across restarts
//   - Reports deletions after a restart
func TestBadgerContentStore_Integration(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "content.db")

	open := func(t *testing.T) *badger.BadgerContentStore {
		t.Helper()
		store, err := badger.NewBadgerContentStore(ctx, badger.BadgerContentStoreConfig{DBPath: dbPath})
		require.NoError(t, err)
		return store
	}

	read := func(t *testing.T, store content.ContentStore, id content.ContentID) string {
		t.Helper()
		rc, err := store.ReadContent(ctx, id)
		require.NoError(t, err)
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}

	t.Run("WriteAndClose", func(t *testing.T) {
		store := open(t)
		require.NoError(t, store.WriteContent(ctx, "test.txt", []byte("persisted")))
		require.NoError(t, store.WriteContent(ctx, "gone.txt", []byte("deleted later")))
		require.NoError(t, store.Close())
	})

	t.Run("PersistsAcrossRestart", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()

		assert.Equal(t, "persisted", read(t, store, "test.txt"))
		require.NoError(t, store.Delete(ctx, "gone.txt"))

		stats, err := store.GetStorageStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.ContentCount)
	})

	t.Run("DeletePersists", func(t *testing.T) {
		store := open(t)
		defer func() { _ = store.Close() }()

		exists, err := store.ContentExists(ctx, "gone.txt")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = store.ReadContent(ctx, "gone.txt")
		assert.ErrorIs(t, err, content.ErrContentNotFound)
	})
}
