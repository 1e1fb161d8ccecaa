// Package config handles configuration loading and validation for taskbook.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/taskbook/internal/core/gateway"
	"github.com/colonyops/taskbook/internal/data/db"
)

// Backend selects the key-value store behind the gateway.
type Backend string

// Supported storage backends.
const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
)

// IsValid checks if the backend is a supported type.
func (b Backend) IsValid() bool {
	switch b {
	case BackendMemory, BackendSQLite, BackendRedis:
		return true
	default:
		return false
	}
}

// Config holds the application configuration.
type Config struct {
	Namespace string         `yaml:"namespace"`
	Version   string         `yaml:"version"`
	Backend   Backend        `yaml:"backend"`
	Database  DatabaseConfig `yaml:"database"`
	Redis     RedisConfig    `yaml:"redis"`
	DataDir   string         `yaml:"-"` // set by caller, not from config file
}

// DatabaseConfig tunes the SQLite connection pool.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// RedisConfig holds the connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Namespace: gateway.DefaultNamespace,
		Version:   gateway.DefaultVersion,
		Backend:   BackendSQLite,
		Database: DatabaseConfig{
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Namespace == "" {
		c.Namespace = defaults.Namespace
	}
	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaults.Redis.Addr
	}
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	if !c.Backend.IsValid() {
		return fmt.Errorf("backend %q must be one of memory, sqlite, redis", c.Backend)
	}

	if c.Backend == BackendSQLite && c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty for the sqlite backend")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}

	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}

	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout cannot be negative")
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db cannot be negative")
	}

	return nil
}

// DatabaseFile returns the path to the SQLite database file.
func (c *Config) DatabaseFile() string {
	return filepath.Join(c.DataDir, db.FileName)
}

// OpenOptions returns the SQLite pool settings.
func (c *Config) OpenOptions() db.OpenOptions {
	return db.OpenOptions{
		MaxOpenConns: c.Database.MaxOpenConns,
		MaxIdleConns: c.Database.MaxIdleConns,
		BusyTimeout:  c.Database.BusyTimeout,
	}
}
