package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all node configuration.
type Config struct {
	Node      NodeConfig      `yaml:"node" toml:"node"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
}

// NodeConfig holds node runtime configuration.
type NodeConfig struct {
	Name                  string   `envconfig:"NODE_NAME" yaml:"name" toml:"name"`
	Dir                   string   `envconfig:"NODE_DIR" yaml:"dir" toml:"dir"`
	InitialRequestTimeout Duration `envconfig:"INITIAL_REQUEST_TIMEOUT" yaml:"initial_request_timeout" toml:"initial_request_timeout"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string `envconfig:"PORT" yaml:"port" toml:"port"`
	Host    string `envconfig:"HOST" yaml:"host" toml:"host"`
	Enabled bool   `envconfig:"SERVER_ENABLED" yaml:"enabled" toml:"enabled"`
	// MaxConnections caps concurrent API connections; 0 is unlimited.
	MaxConnections int `envconfig:"MAX_CONNECTIONS" yaml:"max_connections" toml:"max_connections"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
	File        string `envconfig:"LOG_FILE" yaml:"file" toml:"file"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"rps" toml:"rps"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// AuthConfig holds API authentication. An empty secret disables auth.
type AuthConfig struct {
	Secret string `envconfig:"AUTH_SECRET" yaml:"secret" toml:"secret"`
}

// Duration is a time.Duration that decodes from strings like "5s" in
// files and in the environment.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load builds the configuration from defaults, the optional file at path
// and the environment, in increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load("")
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks values that would break the node at runtime.
func (c *Config) Validate() error {
	if c.Node.Name == "" {
		return fmt.Errorf("node name must not be empty")
	}
	if c.Node.InitialRequestTimeout <= 0 {
		return fmt.Errorf("initial request timeout must be positive, got %s", c.Node.InitialRequestTimeout.Std())
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			Name:                  "node",
			Dir:                   "telenode.db",
			InitialRequestTimeout: Duration(10 * time.Second),
		},
		Server: ServerConfig{
			Port:           "42000",
			Host:           "127.0.0.1",
			Enabled:        true,
			MaxConnections: 256,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
