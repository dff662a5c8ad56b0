package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file
const (
	EnvHost           = "REDB_MONGO_HOST"
	EnvDatabase       = "REDB_MONGO_DATABASE"
	EnvConnectTimeout = "REDB_MONGO_CONNECT_TIMEOUT"
	EnvLogLevel       = "REDB_MONGO_LOG_LEVEL"
)

type Config struct {
	Backend        string `yaml:"backend"`
	Host           string `yaml:"host"`
	Database       string `yaml:"database"`
	ConnectTimeout int    `yaml:"connect_timeout"`
	AppName        string `yaml:"app_name"`
	LogLevel       string `yaml:"log_level"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Backend:        "mongodb",
		Host:           "localhost:27017",
		Database:       "test",
		ConnectTimeout: 10,
		AppName:        "redb-mongo",
		LogLevel:       "info",
	}
}

// DefaultPath returns $HOME/.redb/mongo.yaml.
func DefaultPath() string {
	return os.ExpandEnv("$HOME/.redb/mongo.yaml")
}

// Load reads configFile, creating it with defaults if it does not exist,
// then applies environment overrides.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	configDir := filepath.Dir(configFile)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		//nolint:gosec // configFile comes from the --config flag
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := cfg.Save(configFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(configFile string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvConnectTimeout); v != "" {
		timeout, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvConnectTimeout, err)
		}
		c.ConnectTimeout = timeout
	}
	return nil
}

// Validate checks the fields needed to open a connection.
func (c *Config) Validate() error {
	if c.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %d", c.ConnectTimeout)
	}
	return nil
}
