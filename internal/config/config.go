// Package config loads the service's YAML configuration document.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither an explicit path nor CONFIG_PATH is set.
const DefaultPath = "config/default.yaml"

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	OAuth2   OAuth2Config   `yaml:"oauth2"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds the listener addresses for the two external interfaces.
// Either may be omitted if that interface is not run by this process.
type ServerConfig struct {
	REST               *ListenConfig `yaml:"rest"`
	GRPC               *ListenConfig `yaml:"grpc"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
}

// ListenConfig is a bind address and port pair.
type ListenConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Addr formats the listen config as a net.Listen-compatible address.
func (l ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Address, l.Port)
}

// LoggingConfig controls the base slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig configures the Postgres connection pool.
type DatabaseConfig struct {
	URL                     string `yaml:"url"`
	PoolSize                int    `yaml:"pool_size"`
	MinIdle                 int    `yaml:"min_idle"`
	ConnectionTimeoutSecond int    `yaml:"connection_timeout_seconds"`
}

// OAuth2Config configures bearer-token validation for the management plane.
type OAuth2Config struct {
	JWKSURL        string `yaml:"jwks_url"`
	CacheTTLSecond int    `yaml:"cache_ttl_seconds"`
}

// RedisConfig configures the optional distributed JWKS cache. Addr is empty
// when Redis is not in use; the validator then falls back to an in-process cache.
type RedisConfig struct {
	Addr               string `yaml:"addr"`
	JWKSCacheTTLSecond int    `yaml:"jwks_cache_ttl_seconds"`
}

// MetricsConfig holds the metrics block of the document. No code reads these
// fields: the REST server always serves /metrics on its own listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Load reads and validates the configuration document at path. If path is
// empty, it falls back to the CONFIG_PATH environment variable, then to
// DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{
			PoolSize:                20,
			MinIdle:                 5,
			ConnectionTimeoutSecond: 30,
		},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.REST == nil && c.Server.GRPC == nil {
		return fmt.Errorf("server: at least one of rest or grpc must be configured")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database: url is required")
	}
	if c.OAuth2.JWKSURL == "" {
		return fmt.Errorf("oauth2: jwks_url is required")
	}
	return nil
}
