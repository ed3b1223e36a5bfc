package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing the first validation failure.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation that cannot be expressed in tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.File.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	if cfg.Adapters.File.PoolSize < 1 {
		return fmt.Errorf("adapters.file.pool_size: must be at least 1, got %d", cfg.Adapters.File.PoolSize)
	}

	if cfg.Server.Metrics.Enabled && cfg.Adapters.File.Port != 0 &&
		cfg.Server.Metrics.Port == cfg.Adapters.File.Port {
		return fmt.Errorf("server.metrics.port: %d conflicts with adapters.file.port", cfg.Server.Metrics.Port)
	}

	if cfg.Adapters.File.AcceptBurst > 0 && cfg.Adapters.File.AcceptRate == 0 {
		return fmt.Errorf("adapters.file.accept_burst: requires accept_rate to be set")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
