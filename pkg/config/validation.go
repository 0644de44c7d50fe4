package config

import (
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
// Struct tags cover the declarative rules; validateCustomRules covers
// cross-field constraints that cannot be expressed in tags.
//
// Note: log level normalization is handled in ApplyDefaults, not here.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Store.Type == "durable" {
		// The durable backend needs persistent stores on at least one side,
		// otherwise "memory" would have been the honest choice.
		if cfg.Store.Index.Type == "memory" && cfg.Store.Blob.Type == "memory" {
			return fmt.Errorf("store: durable backend with memory index and memory blob store; use type \"memory\" instead")
		}
	}

	if cache := cfg.Store.Cache; cache.Enabled && cache.Addr == "" {
		return fmt.Errorf("store.cache: addr is required when the cache is enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
