package e2e

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/marmos91/filepool/pkg/config"
	"github.com/marmos91/filepool/pkg/store/content"
)

// ContentStoreType represents the type of content store
type ContentStoreType string

const (
	ContentMemory     ContentStoreType = "memory"
	ContentFilesystem ContentStoreType = "filesystem"
	ContentBadger     ContentStoreType = "badger"
	ContentS3         ContentStoreType = "s3"
)

// TestContextProvider is an interface for providing test context dependencies
type TestContextProvider interface {
	CreateTempDir(prefix string) string
	GetConfig() *TestConfig
}

// TestConfig holds the configuration for a test run
type TestConfig struct {
	Name         string
	ContentStore ContentStoreType
	Cache        bool
	PoolSize     int

	// S3-specific fields (set by localstack setup)
	s3Endpoint string
	s3Bucket   string
}

// String returns a string representation of the configuration
func (tc *TestConfig) String() string {
	if tc.Cache {
		return fmt.Sprintf("%s+cache", tc.ContentStore)
	}
	return string(tc.ContentStore)
}

// ContentConfig renders the configuration the way it would appear in a
// config file, so stores are built by the same factory the server uses.
func (tc *TestConfig) ContentConfig(testCtx TestContextProvider) (*config.ContentConfig, error) {
	cfg := &config.ContentConfig{
		Type:  string(tc.ContentStore),
		Cache: config.CacheConfig{Enabled: tc.Cache},
	}

	switch tc.ContentStore {
	case ContentMemory:
		cfg.Memory = map[string]any{}

	case ContentFilesystem:
		cfg.Filesystem = map[string]any{
			"path": testCtx.CreateTempDir("filepool-content-*"),
		}

	case ContentBadger:
		cfg.Badger = map[string]any{
			"db_path": filepath.Join(testCtx.CreateTempDir("filepool-badger-*"), "content.db"),
		}

	case ContentS3:
		if tc.s3Bucket == "" {
			return nil, fmt.Errorf("S3 bucket not initialized (localstack not running?)")
		}
		cfg.S3 = map[string]any{
			"region":            "us-east-1",
			"bucket":            tc.s3Bucket,
			"key_prefix":        "test/",
			"endpoint":          tc.s3Endpoint,
			"access_key_id":     "test",
			"secret_access_key": "test",
		}

	default:
		return nil, fmt.Errorf("unknown content store type: %s", tc.ContentStore)
	}

	if cfg.Cache.Enabled {
		cfg.Cache.MaxEntries = 64
		cfg.Cache.MaxEntrySize = 1 << 20
	}
	return cfg, nil
}

// CreateContentStore creates a content store based on the configuration
func (tc *TestConfig) CreateContentStore(ctx context.Context, testCtx TestContextProvider) (content.WritableContentStore, error) {
	cfg, err := tc.ContentConfig(testCtx)
	if err != nil {
		return nil, err
	}
	return config.CreateContentStore(ctx, cfg, nil)
}

// AllConfigurations returns all test configurations to run
func AllConfigurations() []*TestConfig {
	return []*TestConfig{
		{Name: "memory", ContentStore: ContentMemory},
		{Name: "filesystem", ContentStore: ContentFilesystem},
		{Name: "filesystem-cache", ContentStore: ContentFilesystem, Cache: true},
		{Name: "badger", ContentStore: ContentBadger},
	}
}

// S3Configurations returns configurations that use S3 (requires localstack)
func S3Configurations() []*TestConfig {
	return []*TestConfig{
		{Name: "s3", ContentStore: ContentS3},
		{Name: "s3-cache", ContentStore: ContentS3, Cache: true},
	}
}

// GetConfiguration returns a specific configuration by name
func GetConfiguration(name string) *TestConfig {
	for _, config := range AllConfigurations() {
		if config.Name == name {
			return config
		}
	}

	for _, config := range S3Configurations() {
		if config.Name == name {
			return config
		}
	}

	return nil
}
