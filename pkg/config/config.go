// Package config loads, validates and materializes the service
// configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FRAGSTORE_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// the storage backend is assembled once at startup from the store section.
// Each index and blob store implementation has its own options map, and
// only the section matching the selected type is decoded; see factories.go.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete fragstore configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Store specifies the storage backend composition
	Store StoreConfig `mapstructure:"store"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// StoreConfig specifies how the storage backend is assembled.
//
// Type selects the top-level backend. The volatile backend needs nothing
// else; the durable backend is composed from the Index and Blob sections.
type StoreConfig struct {
	// Type specifies which backend to use
	// Valid values: memory, durable
	Type string `mapstructure:"type" validate:"required,oneof=memory durable"`

	// Index configures the metadata index of the durable backend
	Index IndexConfig `mapstructure:"index"`

	// Blob configures the blob store of the durable backend
	Blob BlobConfig `mapstructure:"blob"`

	// Cache configures the optional Redis read-through cache, layered over
	// whichever backend Type selects
	Cache CacheConfig `mapstructure:"cache"`
}

// IndexConfig specifies the metadata index implementation.
//
// Only the options map matching Type is used.
type IndexConfig struct {
	// Type specifies which index implementation to use
	// Valid values: memory, badger, dynamodb
	Type string `mapstructure:"type" validate:"required,oneof=memory badger dynamodb"`

	// Badger contains BadgerDB-specific options
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// DynamoDB contains DynamoDB-specific options
	// Only used when Type = "dynamodb"
	DynamoDB map[string]any `mapstructure:"dynamodb"`
}

// BlobConfig specifies the blob store implementation.
//
// Only the options map matching Type is used.
type BlobConfig struct {
	// Type specifies which blob store implementation to use
	// Valid values: memory, filesystem, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory filesystem s3"`

	// Filesystem contains filesystem-specific options
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 contains S3-specific options
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// CacheConfig specifies the optional Redis cache layer.
type CacheConfig struct {
	// Enabled turns the cache layer on
	Enabled bool `mapstructure:"enabled"`

	// Addr is the Redis server address (host:port)
	Addr string `mapstructure:"addr"`

	// Password authenticates against Redis; empty means no auth
	Password string `mapstructure:"password"`

	// DB selects the Redis logical database
	DB int `mapstructure:"db"`

	// TTL is how long cached entries live; zero means no expiry
	TTL time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use FRAGSTORE_ prefix and underscores
	// Example: FRAGSTORE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FRAGSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Register the known keys so AutomaticEnv can bind them even when no
	// config file sets them.
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.output", "")
	v.SetDefault("store.type", "")
	v.SetDefault("store.index.type", "")
	v.SetDefault("store.blob.type", "")
	v.SetDefault("store.cache.enabled", false)
	v.SetDefault("store.cache.addr", "")
	v.SetDefault("store.cache.password", "")
	v.SetDefault("store.cache.db", 0)
	v.SetDefault("store.cache.ttl", time.Duration(0))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable: defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fragstore")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "fragstore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
