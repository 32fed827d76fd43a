// Package config loads the localdb configuration file.
//
// Config file locations (priority order):
//  1. $LOCALDB_CONFIG
//  2. ./localdb.yaml
//  3. $XDG_CONFIG_HOME/localdb/config.yaml
//  4. ~/.config/localdb/config.yaml
//
// A missing file is not an error; defaults apply.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path.
	EnvConfigPath = "LOCALDB_CONFIG"
	// ConfigFileName is the config file looked up in the working directory.
	ConfigFileName = "localdb.yaml"
	// ConfigDirName is the config directory name under XDG.
	ConfigDirName = "localdb"

	// DefaultSuffix matches registry.DefaultSuffix.
	DefaultSuffix   = ".rotki"
	DefaultPageSize = 10
	DefaultLogLevel = "info"
)

// Config is the on-disk configuration.
type Config struct {
	Version int `yaml:"version"`

	// DataDir holds one database file per user.
	DataDir string `yaml:"data_dir"`

	// Suffix is appended to user ids to form store names.
	Suffix string `yaml:"suffix"`

	// SessionFile holds the id of the logged in user for `watch`.
	SessionFile string `yaml:"session_file,omitempty"`

	// PageSize is the default limit of `mappings list`.
	PageSize int `yaml:"page_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Load finds and loads the config file, or returns defaults if none found.
// The returned path is empty when defaults were used.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// Save writes config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Suffix == "" {
		c.Suffix = DefaultSuffix
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate rejects values no command can work with.
func (c *Config) Validate() error {
	if c.PageSize < 0 {
		return fmt.Errorf("config: page_size must not be negative, got %d", c.PageSize)
	}
	if strings.ContainsAny(c.Suffix, `/\`) {
		return fmt.Errorf("config: suffix %q must not contain a path separator", c.Suffix)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel maps a log level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: invalid log_level %q", s)
	}
	return level, nil
}

// FindConfigPath returns the first existing config file, or "".
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if fileExists(path) {
			return path
		}
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		path := filepath.Join(xdgHome, ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		path := filepath.Join(home, ".config", ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	return ""
}

// DefaultDataDir returns $XDG_DATA_HOME/localdb, ~/.local/share/localdb, or
// ./localdb-data when neither is available.
func DefaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, ConfigDirName)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "share", ConfigDirName)
	}
	return "localdb-data"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
