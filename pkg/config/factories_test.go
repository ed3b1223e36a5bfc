package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/filepool/pkg/adapter/fileserve"
	"github.com/marmos91/filepool/pkg/metrics"
	"github.com/marmos91/filepool/pkg/store/content"
	"github.com/marmos91/filepool/pkg/store/content/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, store content.ContentStore, id content.ContentID) string {
	t.Helper()

	rc, err := store.ReadContent(context.Background(), id)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func closeAfter(t *testing.T, store content.ContentStore) {
	t.Cleanup(func() {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}
	})
}

func TestCreateContentStore_Filesystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.txt"), []byte("from disk"), 0644))

	store, err := CreateContentStore(context.Background(), &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": dir},
	}, nil)
	require.NoError(t, err)
	closeAfter(t, store)

	assert.IsType(t, &content.InstrumentedStore{}, store)
	assert.Equal(t, "from disk", readAll(t, store, "test.txt"))
}

func TestCreateContentStore_FilesystemRequiresPath(t *testing.T) {
	_, err := CreateContentStore(context.Background(), &ContentConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{},
	}, nil)
	assert.ErrorContains(t, err, "path is required")
}

func TestCreateContentStore_MemorySeeded(t *testing.T) {
	store, err := CreateContentStore(context.Background(), &ContentConfig{
		Type: "memory",
		Memory: map[string]any{
			"files": []any{
				map[string]any{"name": "test.txt", "contents": "seeded"},
				map[string]any{"name": "empty.txt", "contents": ""},
			},
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "seeded", readAll(t, store, "test.txt"))
	assert.Equal(t, "", readAll(t, store, "empty.txt"))

	_, err = store.ReadContent(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func TestCreateContentStore_BadgerInMemory(t *testing.T) {
	store, err := CreateContentStore(context.Background(), &ContentConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": "true"},
	}, nil)
	require.NoError(t, err)
	closeAfter(t, store)

	require.NoError(t, store.WriteContent(context.Background(), "a.txt", []byte("kv")))
	assert.Equal(t, "kv", readAll(t, store, "a.txt"))
}

func TestCreateContentStore_BadgerRequiresPath(t *testing.T) {
	_, err := CreateContentStore(context.Background(), &ContentConfig{
		Type:   "badger",
		Badger: map[string]any{},
	}, nil)
	assert.ErrorContains(t, err, "db_path is required")
}

func TestCreateContentStore_S3RequiresBucketAndRegion(t *testing.T) {
	_, err := CreateContentStore(context.Background(), &ContentConfig{
		Type: "s3",
		S3:   map[string]any{"region": "us-east-1"},
	}, nil)
	assert.ErrorContains(t, err, "bucket is required")

	_, err = CreateContentStore(context.Background(), &ContentConfig{
		Type: "s3",
		S3:   map[string]any{"bucket": "files"},
	}, nil)
	assert.ErrorContains(t, err, "region is required")
}

func TestCreateS3Client_Endpoint(t *testing.T) {
	client, err := CreateS3Client(context.Background(), S3Options{
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)

	opts := client.Options()
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "us-east-1", opts.Region)
}

func TestCreateContentStore_UnknownType(t *testing.T) {
	_, err := CreateContentStore(context.Background(), &ContentConfig{Type: "tape"}, nil)
	assert.ErrorContains(t, err, "unknown content store type")
}

func TestCreateContentStore_WithCache(t *testing.T) {
	store, err := CreateContentStore(context.Background(), &ContentConfig{
		Type: "memory",
		Memory: map[string]any{
			"files": []any{map[string]any{"name": "test.txt", "contents": "cached"}},
		},
		Cache: CacheConfig{Enabled: true, MaxEntries: 4, MaxEntrySize: 1024},
	}, metrics.NewNoopStoreMetrics())
	require.NoError(t, err)
	closeAfter(t, store)

	cached, ok := store.(*cache.CachedStore)
	require.True(t, ok, "cache wraps the instrumented store")

	assert.Equal(t, "cached", readAll(t, store, "test.txt"))
	assert.Equal(t, 1, cached.Len())
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()

	adapters, err := CreateAdapters(cfg, nil)
	require.NoError(t, err)
	require.Len(t, adapters, 1)

	a, ok := adapters[0].(*fileserve.FileAdapter)
	require.True(t, ok)
	assert.Equal(t, "FILE", a.Protocol())
	assert.Equal(t, 54000, a.Port())

	cfg.Adapters.File.Enabled = false
	_, err = CreateAdapters(cfg, nil)
	assert.ErrorContains(t, err, "no adapters enabled")
}

func TestInitializeMetrics_Disabled(t *testing.T) {
	result := InitializeMetrics(GetDefaultConfig())

	assert.Nil(t, result.Server)
	assert.NotNil(t, result.PoolMetrics)
	assert.NotNil(t, result.StoreMetrics)
}
