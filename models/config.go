// Package models defines data structures for configuration and page annotations.
package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath     = "config.yaml"
	DefaultDataDir        = "data"
	DefaultUploadDir      = "uploads"
	DefaultDBPath         = "layout-editor.db"
	DefaultAddr           = "0.0.0.0:7090"
	DefaultMaxUploadBytes = 16 * 1024 * 1024
	DefaultSessionTTL     = 2 * time.Hour
	DefaultMinBoxSize     = 1.0
)

// Config holds runtime configuration. Values come from config.yaml and may be
// overridden by CLI flags.
type Config struct {
	DataDir        string        `yaml:"data_dir"`
	UploadDir      string        `yaml:"upload_dir"`
	DBPath         string        `yaml:"db_path"`
	Addr           string        `yaml:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ValidateSaves  *bool         `yaml:"validate_saves"` // MarkValidated implicitly saves when true (default)
	SessionTTL     time.Duration `yaml:"session_ttl"`
	MinBoxSize     float64       `yaml:"min_box_size"`
	Languages      []string      `yaml:"languages"` // ISO 639-1 codes for export language tagging
}

// DefaultConfig returns a configuration with every field set to its default.
func DefaultConfig() *Config {
	validateSaves := true
	return &Config{
		DataDir:        DefaultDataDir,
		UploadDir:      DefaultUploadDir,
		DBPath:         DefaultDBPath,
		Addr:           DefaultAddr,
		MaxUploadBytes: DefaultMaxUploadBytes,
		ValidateSaves:  &validateSaves,
		SessionTTL:     DefaultSessionTTL,
		MinBoxSize:     DefaultMinBoxSize,
		Languages:      []string{"en", "de", "fr", "es"},
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
// A missing file is not an error; the defaults are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults restores defaults for keys present but left empty in the file.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.UploadDir == "" {
		c.UploadDir = def.UploadDir
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if c.ValidateSaves == nil {
		c.ValidateSaves = def.ValidateSaves
	}
	if len(c.Languages) == 0 {
		c.Languages = def.Languages
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("invalid config: data_dir is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid config: max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid config: session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.MinBoxSize <= 0 {
		return fmt.Errorf("invalid config: min_box_size must be positive, got %g", c.MinBoxSize)
	}
	return nil
}

// SavesOnValidate reports whether marking a page validated also saves it.
func (c *Config) SavesOnValidate() bool {
	return c.ValidateSaves == nil || *c.ValidateSaves
}
