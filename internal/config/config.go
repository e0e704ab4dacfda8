package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eleven-am/dishdb/internal/database"
)

// Environment variables that override the config file
const (
	EnvDatabaseURL    = "DISHDB_DATABASE_URL"
	EnvDatabaseDriver = "DISHDB_DATABASE_DRIVER"
	EnvLogLevel       = "DISHDB_LOG_LEVEL"
	EnvConfigPath     = "DISHDB_CONFIG"
)

// DefaultPath is where Save writes when no path is given
const DefaultPath = "dishdb.yaml"

var searchPaths = []string{"dishdb.yaml", "dishdb.yml", ".dishdb.yaml", ".dishdb.yml"}

// Config represents the dishdb.yaml configuration structure
type Config struct {
	Database database.Config `yaml:"database"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Metrics struct {
		Enabled   bool   `yaml:"enabled"`
		Namespace string `yaml:"namespace"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{Database: database.DefaultConfig()}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Metrics.Namespace = "dishdb"
	return cfg
}

// Load reads the config file at path, or the first file found in the
// working directory when path is empty, then applies .env files and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	loadDotEnv()

	if path == "" {
		path = FindPath()
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindPath returns the config path from DISHDB_CONFIG or the first
// existing default location, or "" when there is none.
func FindPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	for _, loc := range searchPaths {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// loadDotEnv loads .env, then .env.local over it. Neither is required.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
	if _, err := os.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Database.URL = v
	} else if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Database.URL == "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv(EnvDatabaseDriver); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	c.Database = c.Database.WithDefaults()
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "dishdb"
	}
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	driver, err := database.NormalizeDriver(c.Database.Driver)
	if err != nil {
		return err
	}
	c.Database.Driver = driver

	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database pool sizes must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// Save writes cfg as YAML
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
