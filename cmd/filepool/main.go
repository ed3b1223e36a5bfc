package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/filepool/internal/logger"
	"github.com/marmos91/filepool/pkg/config"
	"github.com/marmos91/filepool/pkg/server"
)

const usage = `filepool - one-shot TCP file server

Usage:
  filepool <command> [flags]

Commands:
  init     Write a sample configuration file
  start    Start the file server
  import   Copy a directory tree into the configured content store

Flags:
  -config string   Path to config file (default: $XDG_CONFIG_HOME/filepool/config.yaml)
  -force           Overwrite an existing config file (init only)

Examples:
  filepool init
  filepool start
  filepool start -config /etc/filepool/config.yaml
  filepool import -config config.yaml ./public

Environment variables (override the config file):
  FILEPOOL_LOGGING_LEVEL=DEBUG
  FILEPOOL_ADAPTERS_FILE_PORT=54000
  FILEPOOL_ADAPTERS_FILE_POOL_SIZE=10
  FILEPOOL_CONTENT_TYPE=memory
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch command, args := os.Args[1], os.Args[2:]; command {
	case "init":
		err = runInit(args)
	case "start":
		err = runStart(args)
	case "import":
		err = runImport(args)
	case "help", "-h", "-help", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.SetOutput(os.Stderr)
	configFile := fs.String("config", "", "Path to config file")
	return fs, configFile
}

func runInit(args []string) error {
	fs, configFile := newFlagSet("init")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	_ = fs.Parse(args)

	path := *configFile
	if path == "" {
		written, err := config.InitConfig(*force)
		if err != nil {
			return err
		}
		path = written
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Printf("  2. Start the server with: filepool start -config %s\n", path)
	return nil
}

// loadConfig loads the configuration and configures the logger from it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}
	return cfg, nil
}

func runStart(args []string) error {
	fs, configFile := newFlagSet("start")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("filepool - one-shot TCP file server")
	logger.Info("Log level: %s, format: %s", cfg.Logging.Level, cfg.Logging.Format)

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	store, err := config.CreateContentStore(ctx, &cfg.Content, metricsResult.StoreMetrics)
	if err != nil {
		return fmt.Errorf("failed to create content store: %w", err)
	}
	defer closeStore(store)
	logger.Info("Content store: %s", cfg.Content.Type)

	srv := server.New(store)
	srv.StopTimeout = cfg.Server.ShutdownTimeout

	adapters, err := config.CreateAdapters(cfg, metricsResult.PoolMetrics)
	if err != nil {
		return fmt.Errorf("failed to create adapters: %w", err)
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
		logger.Info("%s adapter: %s:%d, %d workers",
			a.Protocol(), cfg.Adapters.File.BindAddress, a.Port(), cfg.Adapters.File.PoolSize)
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func closeStore(store any) {
	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("Error closing content store: %v", err)
		}
	}
}
