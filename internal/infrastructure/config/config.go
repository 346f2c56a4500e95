package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Sandbox   SandboxConfig
	Sql       SqlConfig
	Probe     ProbeConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8100" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// SandboxConfig holds sandbox execution configuration.
type SandboxConfig struct {
	TimeoutMs      int `envconfig:"SANDBOX_TIMEOUT_MS" default:"10000" yaml:"timeout_ms"`
	MaxSourceBytes int `envconfig:"SANDBOX_MAX_SOURCE_BYTES" default:"262144" yaml:"max_source_bytes"`
	MaxLogEntries  int `envconfig:"SANDBOX_MAX_LOG_ENTRIES" default:"1000" yaml:"max_log_entries"`
	MaxFrames      int `envconfig:"SANDBOX_MAX_FRAMES" default:"60" yaml:"max_frames"`
}

// SqlConfig holds SQL engine configuration.
type SqlConfig struct {
	MaxRows         int `envconfig:"SQL_MAX_ROWS" default:"1000" yaml:"max_rows"`
	MaxSessionIdleS int `envconfig:"SQL_MAX_SESSION_IDLE_S" default:"1800" yaml:"max_session_idle_s"`
}

// ProbeConfig holds API probe configuration.
type ProbeConfig struct {
	TimeoutSeconds int `envconfig:"PROBE_TIMEOUT_S" default:"30" yaml:"timeout_seconds"`
	MaxBodyBytes   int `envconfig:"PROBE_MAX_BODY_BYTES" default:"2097152" yaml:"max_body_bytes"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// SandboxTimeout returns the sandbox deadline as a duration.
func (c *Config) SandboxTimeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutMs) * time.Millisecond
}

// ProbeTimeout returns the probe deadline as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// Load loads configuration from environment variables. If ARTIFACTD_CONFIG
// points to a YAML file, its values are applied last and win over both the
// defaults and the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv("ARTIFACTD_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8100",
			Host: "0.0.0.0",
		},
		Sandbox: SandboxConfig{
			TimeoutMs:      10000,
			MaxSourceBytes: 256 * 1024,
			MaxLogEntries:  1000,
			MaxFrames:      60,
		},
		Sql: SqlConfig{
			MaxRows:         1000,
			MaxSessionIdleS: 1800,
		},
		Probe: ProbeConfig{
			TimeoutSeconds: 30,
			MaxBodyBytes:   2 * 1024 * 1024,
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
