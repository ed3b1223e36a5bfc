package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# filepool Configuration File
#
# Every value below is the built-in default. Any key can be overridden with
# an environment variable: FILEPOOL_ + the upper-cased path with "." -> "_",
# e.g. FILEPOOL_ADAPTERS_FILE_POOL_SIZE=10. Variables may also be placed in
# a .env file in the working directory.
#
# content.type selects where files are served from:
#   filesystem  files under content.filesystem.path
#   memory      content.memory.files ([{name, contents}]), lost on restart
#   s3          objects in content.s3.bucket (region, endpoint, key_prefix, ...)
#   badger      embedded database at content.badger.db_path
#
`

// GenerateSampleConfig renders the default configuration as commented YAML.
func GenerateSampleConfig() ([]byte, error) {
	cfg := GetDefaultConfig()

	var buf bytes.Buffer
	buf.WriteString(sampleHeader)

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to render sample config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to render sample config: %w", err)
	}

	return buf.Bytes(), nil
}

// InitConfig writes a sample configuration to the default location.
//
// Returns the path written, or an error if a file already exists and force
// is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path, creating parent
// directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := GenerateSampleConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
