package config

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/filepool/internal/logger"
	"github.com/marmos91/filepool/pkg/metrics"
	"github.com/marmos91/filepool/pkg/store/content"
	contentBadger "github.com/marmos91/filepool/pkg/store/content/badger"
	"github.com/marmos91/filepool/pkg/store/content/cache"
	contentFs "github.com/marmos91/filepool/pkg/store/content/fs"
	contentMemory "github.com/marmos91/filepool/pkg/store/content/memory"
	contentS3 "github.com/marmos91/filepool/pkg/store/content/s3"
	"github.com/mitchellh/mapstructure"
)

// S3Options are the options accepted under content.s3.
type S3Options struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// CreateContentStore creates the content store files are served from.
//
// The Type field selects the backend; its options map is decoded into the
// backend's configuration. The backend is always wrapped with
// content.Instrument so every call reports to storeMetrics, and with the LRU
// cache when content.cache.enabled is set.
//
// Supported types:
//   - "filesystem": pkg/store/content/fs (files under a base directory)
//   - "memory": pkg/store/content/memory (seeded from the files option)
//   - "s3": pkg/store/content/s3 (Amazon S3 or compatible storage)
//   - "badger": pkg/store/content/badger (embedded key-value store)
//
// The returned store implements io.Closer; callers should Close it on exit.
func CreateContentStore(ctx context.Context, cfg *ContentConfig, storeMetrics metrics.StoreMetrics) (content.WritableContentStore, error) {
	base, err := createBaseContentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var store content.WritableContentStore = content.Instrument(base, cfg.Type, storeMetrics)

	if cfg.Cache.Enabled {
		cached, err := cache.New(store, cache.Config{
			MaxEntries:   cfg.Cache.MaxEntries,
			MaxEntrySize: cfg.Cache.MaxEntrySize,
		}, storeMetrics)
		if err != nil {
			closeStore(store)
			return nil, err
		}
		logger.Info("Content cache enabled: max_entries=%d max_entry_size=%d",
			cfg.Cache.MaxEntries, cfg.Cache.MaxEntrySize)
		store = cached
	}

	return store, nil
}

func createBaseContentStore(ctx context.Context, cfg *ContentConfig) (content.WritableContentStore, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemContentStore(ctx, cfg.Filesystem)
	case "memory":
		return createMemoryContentStore(ctx, cfg.Memory)
	case "s3":
		return createS3ContentStore(ctx, cfg.S3)
	case "badger":
		return createBadgerContentStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

// decodeOptions decodes a store options map, accepting string values for
// numbers and booleans since they may come from environment variables.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}

// createFilesystemContentStore creates a filesystem-based content store.
func createFilesystemContentStore(ctx context.Context, options map[string]any) (content.WritableContentStore, error) {
	var storeCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentFs.NewFSContentStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}

	logger.Info("Filesystem content store initialized: path=%s", storeCfg.Path)
	return store, nil
}

// MemoryFile is one file seeded into the memory store. Files are a list
// rather than a map because viper splits map keys on "." (test.txt).
type MemoryFile struct {
	Name     string `mapstructure:"name"`
	Contents string `mapstructure:"contents"`
}

// createMemoryContentStore creates an in-memory store seeded from the
// files option.
func createMemoryContentStore(ctx context.Context, options map[string]any) (content.WritableContentStore, error) {
	var storeCfg struct {
		Files []MemoryFile `mapstructure:"files"`
	}
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory content store config: %w", err)
	}

	store, err := contentMemory.NewMemoryContentStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory content store: %w", err)
	}

	for _, file := range storeCfg.Files {
		if err := store.WriteContent(ctx, content.ContentID(file.Name), []byte(file.Contents)); err != nil {
			return nil, fmt.Errorf("failed to seed memory content store with %q: %w", file.Name, err)
		}
	}

	logger.Info("Memory content store initialized with %d file(s)", len(storeCfg.Files))
	return store, nil
}

// createBadgerContentStore creates a BadgerDB-based content store.
func createBadgerContentStore(ctx context.Context, options map[string]any) (content.WritableContentStore, error) {
	var storeCfg contentBadger.BadgerContentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger content store config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger content store: db_path is required")
	}

	store, err := contentBadger.NewBadgerContentStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger content store: %w", err)
	}

	logger.Info("Badger content store initialized: db_path=%s in_memory=%t", storeCfg.DBPath, storeCfg.InMemory)
	return store, nil
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any) (content.WritableContentStore, error) {
	var storeCfg S3Options
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	client, err := CreateS3Client(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	store, err := contentS3.NewS3ContentStore(ctx, contentS3.S3ContentStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateS3Client builds an S3 client from the store options.
//
// Credentials come from the options when both keys are set, otherwise from
// the default AWS credential chain. A custom endpoint (MinIO, Localstack)
// implies path-style addressing.
func CreateS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(opts.Region))

	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Default to 10 attempts (AWS default is 3) to ride out transient 5xx.
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
		if opts.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	return client, nil
}

// closeStore closes store if it holds resources.
func closeStore(store content.ContentStore) {
	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("Error closing content store: %v", err)
		}
	}
}
