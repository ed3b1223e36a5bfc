package main

import (
	"context"
	"fmt"
	iofs "io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/marmos91/filepool/internal/logger"
	"github.com/marmos91/filepool/pkg/config"
	"github.com/marmos91/filepool/pkg/metrics"
	"github.com/marmos91/filepool/pkg/store/content"
)

// runImport copies every regular file under a directory into the configured
// content store, keyed by its slash-separated path relative to the directory.
func runImport(args []string) error {
	fs, configFile := newFlagSet("import")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("import takes exactly one directory argument")
	}
	dir := fs.Arg(0)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := config.CreateContentStore(ctx, &cfg.Content, metrics.NewNoopStoreMetrics())
	if err != nil {
		return fmt.Errorf("failed to create content store: %w", err)
	}
	defer closeStore(store)

	count, size, err := importDir(ctx, store, dir)
	if err != nil {
		return err
	}

	logger.Info("Imported %d file(s), %d bytes into %s store", count, size, cfg.Content.Type)
	return nil
}

func importDir(ctx context.Context, store content.WritableContentStore, dir string) (int, int64, error) {
	var count int
	var size int64

	err := filepath.WalkDir(dir, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		id := content.ContentID(filepath.ToSlash(rel))

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := store.WriteContent(ctx, id, data); err != nil {
			return fmt.Errorf("failed to import %s: %w", id, err)
		}

		logger.Debug("Imported %s (%d bytes)", id, len(data))
		count++
		size += int64(len(data))
		return nil
	})
	if err != nil {
		return count, size, fmt.Errorf("import %s: %w", dir, err)
	}
	return count, size, nil
}
