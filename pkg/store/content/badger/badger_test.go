package badger

import (
	"context"
	"testing"

	"github.com/marmos91/filepool/pkg/store/content"
	storetesting "github.com/marmos91/filepool/pkg/store/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerContentStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.ContentStore {
			store, err := NewBadgerContentStore(context.Background(), BadgerContentStoreConfig{InMemory: true})
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
	suite.Run(t)
}

func TestBadgerContentStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := BadgerContentStoreConfig{DBPath: t.TempDir()}

	store, err := NewBadgerContentStore(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, store.WriteContent(ctx, "kept.txt", []byte("still here")))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerContentStore(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	size, err := reopened.GetContentSize(ctx, "kept.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(len("still here")), size)
}

func TestBadgerContentStore_RequiresPath(t *testing.T) {
	_, err := NewBadgerContentStore(context.Background(), BadgerContentStoreConfig{})
	assert.Error(t, err)
}
