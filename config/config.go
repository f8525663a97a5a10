package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
)

type HashingConfig struct {
	WindowSize      int `yaml:"window_size"`
	DigestSize      int `yaml:"digest_size"`
	Precision       int `yaml:"precision"`
	TokenWindowSize int `yaml:"token_window_size"`
	TokenDigestSize int `yaml:"token_digest_size"`
}

type InputConfig struct {
	Decompression string `yaml:"decompression"` // "auto", "none", "gzip" or "zstd"
	MaxInputSize  int64  `yaml:"max_input_size"`
}

type IndexConfig struct {
	Path            string  `yaml:"path"`
	Threshold       float64 `yaml:"threshold"`
	MaxResults      int     `yaml:"max_results"`
	CompressDigests *bool   `yaml:"compress_digests"`
}

type BatchConfig struct {
	Workers      int `yaml:"workers"`
	CacheEntries int `yaml:"cache_entries"`
}

type MonitoringConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "json" or "text"
}

type Config struct {
	Hashing    HashingConfig    `yaml:"hashing"`
	Input      InputConfig      `yaml:"input"`
	Index      IndexConfig      `yaml:"index"`
	Batch      BatchConfig      `yaml:"batch"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return finish(&cfg)
}

// LoadOrDefault loads path if it exists and falls back to Default plus
// environment overrides otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	// Override with environment variables
	cfg.applyEnvironmentOverrides()

	// Apply defaults
	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fherrors.WrapError(fherrors.ErrCodeConfigInvalid, "config validation failed", err)
	}

	return cfg, nil
}

// applyEnvironmentOverrides overrides config values with environment variables if set
func (c *Config) applyEnvironmentOverrides() {
	envInt("FUZZYHASH_WINDOW_SIZE", &c.Hashing.WindowSize)
	envInt("FUZZYHASH_DIGEST_SIZE", &c.Hashing.DigestSize)
	envInt("FUZZYHASH_PRECISION", &c.Hashing.Precision)
	envInt("FUZZYHASH_TOKEN_WINDOW_SIZE", &c.Hashing.TokenWindowSize)
	envInt("FUZZYHASH_TOKEN_DIGEST_SIZE", &c.Hashing.TokenDigestSize)
	envInt("FUZZYHASH_WORKERS", &c.Batch.Workers)
	envInt("FUZZYHASH_CACHE_ENTRIES", &c.Batch.CacheEntries)

	if val := os.Getenv("FUZZYHASH_DECOMPRESSION"); val != "" {
		c.Input.Decompression = val
	}
	if val := os.Getenv("FUZZYHASH_INDEX_PATH"); val != "" {
		c.Index.Path = val
	}
	if val := os.Getenv("FUZZYHASH_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Index.Threshold = f
		}
	}
	if val := os.Getenv("FUZZYHASH_LOG_LEVEL"); val != "" {
		c.Monitoring.LogLevel = val
	}
	if val := os.Getenv("FUZZYHASH_LOG_FORMAT"); val != "" {
		c.Monitoring.LogFormat = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// applyDefaults sets default values for unset configuration fields
func (c *Config) applyDefaults() {
	// Hashing defaults
	if c.Hashing.WindowSize == 0 {
		c.Hashing.WindowSize = 64
	}
	if c.Hashing.DigestSize == 0 {
		c.Hashing.DigestSize = 16
	}
	if c.Hashing.Precision == 0 {
		c.Hashing.Precision = 32
	}
	if c.Hashing.TokenWindowSize == 0 {
		c.Hashing.TokenWindowSize = 16
	}
	if c.Hashing.TokenDigestSize == 0 {
		c.Hashing.TokenDigestSize = 16
	}

	// Input defaults
	if c.Input.Decompression == "" {
		c.Input.Decompression = "auto"
	}
	if c.Input.MaxInputSize == 0 {
		c.Input.MaxInputSize = 512 * 1024 * 1024 // 512MB
	}

	// Index defaults
	if c.Index.Path == "" {
		c.Index.Path = "fuzzyhash.db"
	}
	if c.Index.Threshold == 0 {
		c.Index.Threshold = 0.5
	}
	if c.Index.MaxResults == 0 {
		c.Index.MaxResults = 10
	}
	if c.Index.CompressDigests == nil {
		enabled := true
		c.Index.CompressDigests = &enabled
	}

	// Batch defaults
	if c.Batch.Workers == 0 {
		c.Batch.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Batch.CacheEntries == 0 {
		c.Batch.CacheEntries = 4096
	}

	// Monitoring defaults
	if c.Monitoring.LogLevel == "" {
		c.Monitoring.LogLevel = "info"
	}
	if c.Monitoring.LogFormat == "" {
		c.Monitoring.LogFormat = "text"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate hashing parameters
	if c.Hashing.WindowSize < 1 {
		return fmt.Errorf("window_size must be >= 1, got %d", c.Hashing.WindowSize)
	}
	if c.Hashing.DigestSize < 1 {
		return fmt.Errorf("digest_size must be >= 1, got %d", c.Hashing.DigestSize)
	}
	switch c.Hashing.Precision {
	case 8, 16, 32, 64:
	default:
		return fmt.Errorf("invalid precision: %d (must be 8, 16, 32 or 64)", c.Hashing.Precision)
	}
	if c.Hashing.TokenWindowSize < 1 {
		return fmt.Errorf("token_window_size must be >= 1, got %d", c.Hashing.TokenWindowSize)
	}
	if c.Hashing.TokenDigestSize < 1 {
		return fmt.Errorf("token_digest_size must be >= 1, got %d", c.Hashing.TokenDigestSize)
	}

	// Validate input settings
	switch c.Input.Decompression {
	case "auto", "none", "gzip", "zstd":
	default:
		return fmt.Errorf("invalid decompression: %s (must be auto, none, gzip or zstd)", c.Input.Decompression)
	}
	if c.Input.MaxInputSize < 0 {
		return fmt.Errorf("max_input_size must be >= 0, got %d", c.Input.MaxInputSize)
	}

	// Validate index settings
	if c.Index.Threshold < 0 || c.Index.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", c.Index.Threshold)
	}
	if c.Index.MaxResults < 1 {
		return fmt.Errorf("max_results must be >= 1, got %d", c.Index.MaxResults)
	}

	if c.Batch.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Batch.Workers)
	}
	if c.Batch.CacheEntries < 0 {
		return fmt.Errorf("cache_entries must be >= 0, got %d", c.Batch.CacheEntries)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.Monitoring.LogLevel)] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, error, or fatal)",
			c.Monitoring.LogLevel)
	}

	// Validate log format
	if c.Monitoring.LogFormat != "json" && c.Monitoring.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", c.Monitoring.LogFormat)
	}

	return nil
}
