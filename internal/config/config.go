// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8882"
	DefaultDatabasePath    = "data/omni.db"
	DefaultQuotaLimit      = 60
	DefaultQuotaWindowSecs = 60
	DefaultBridgeTimeout   = 15
	DefaultBridgeRate      = 10
	DefaultDiscordTimeout  = 15
	DefaultDiscordFailures = 5
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Database DatabaseConfig `toml:"database"`
	Quota    QuotaConfig    `toml:"quota"`
	WhatsApp WhatsAppConfig `toml:"whatsapp"`
	Discord  DiscordConfig  `toml:"discord"`
	Mappings MappingsConfig `toml:"mappings"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AuthConfig holds the static API key required on every API request.
type AuthConfig struct {
	APIKey string `toml:"api_key"`
}

// DatabaseConfig holds the SQLite path for instance configurations.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// QuotaConfig holds the per-instance sliding-window request quota.
type QuotaConfig struct {
	Limit         int `toml:"limit"`
	WindowSeconds int `toml:"window_seconds"`
}

// Window returns the quota window as a duration.
func (c QuotaConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// WhatsAppConfig holds bridge client timeouts and outbound pacing.
type WhatsAppConfig struct {
	TimeoutSeconds    int `toml:"timeout_seconds"`
	RequestsPerSecond int `toml:"requests_per_second"`
}

// Timeout returns the bridge request timeout as a duration.
func (c WhatsAppConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DiscordConfig holds gateway operation timeouts and the reconnect circuit
// breaker threshold.
type DiscordConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	MaxFailures    int `toml:"max_failures"`
}

// MappingsConfig points to an optional YAML file overriding the compiled-in
// platform mapping tables.
type MappingsConfig struct {
	Path string `toml:"path"`
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. A missing file yields pure defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Database: DatabaseConfig{
			Path: DefaultDatabasePath,
		},
		Quota: QuotaConfig{
			Limit:         DefaultQuotaLimit,
			WindowSeconds: DefaultQuotaWindowSecs,
		},
		WhatsApp: WhatsAppConfig{
			TimeoutSeconds:    DefaultBridgeTimeout,
			RequestsPerSecond: DefaultBridgeRate,
		},
		Discord: DiscordConfig{
			TimeoutSeconds: DefaultDiscordTimeout,
			MaxFailures:    DefaultDiscordFailures,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
