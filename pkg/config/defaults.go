package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", false, nil) are replaced with defaults; explicit
// values are preserved. Store-specific option defaults live with the store
// implementations.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyStoreDefaults sets storage backend defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Index.Badger == nil {
		cfg.Index.Badger = make(map[string]any)
	}
	if cfg.Index.DynamoDB == nil {
		cfg.Index.DynamoDB = make(map[string]any)
	}

	if cfg.Blob.Type == "" {
		cfg.Blob.Type = "memory"
	}
	if cfg.Blob.Filesystem == nil {
		cfg.Blob.Filesystem = make(map[string]any)
	}
	if cfg.Blob.S3 == nil {
		cfg.Blob.S3 = make(map[string]any)
	}

	if cfg.Cache.Enabled && cfg.Cache.Addr == "" {
		cfg.Cache.Addr = "localhost:6379"
	}
	if cfg.Cache.Enabled && cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
