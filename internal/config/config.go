// Package config provides configuration loading and defaults for statboard.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP listener and access settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedIPs     []string `yaml:"allowed_ips"`
	// TokenSecret signs viewer tokens. When empty a key is generated and
	// persisted next to the user's home directory.
	TokenSecret      string `yaml:"token_secret"`
	TokenExpiryHours int    `yaml:"token_expiry_hours"`
}

// StoreConfig holds connection details for the hosted sample store.
type StoreConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Table  string `yaml:"table"`
	// Timeout is the HTTP request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// Load reads a YAML file from path on top of DefaultConfig, so keys missing
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a new Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:             "localhost:8080",
			TokenExpiryHours: 90 * 24,
		},
		Store: StoreConfig{
			Table:   "server_stats",
			Timeout: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyEnvOverrides updates cfg in place with values from environment variables.
// Recognized variables:
//   - SUPABASE_URL (or NEXT_PUBLIC_SUPABASE_URL) overrides cfg.Store.URL
//   - SUPABASE_ANON_KEY (or NEXT_PUBLIC_SUPABASE_ANON_KEY) overrides cfg.Store.APIKey
//   - STATBOARD_ADDR overrides cfg.Server.Addr
//   - STATBOARD_TOKEN_SECRET overrides cfg.Server.TokenSecret
//   - STATBOARD_LOG_LEVEL overrides cfg.Log.Level
func ApplyEnvOverrides(cfg *Config) {
	if v := firstEnv("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"); v != "" {
		cfg.Store.URL = v
	}
	if v := firstEnv("SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"); v != "" {
		cfg.Store.APIKey = v
	}
	if v := os.Getenv("STATBOARD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STATBOARD_TOKEN_SECRET"); v != "" {
		cfg.Server.TokenSecret = v
	}
	if v := os.Getenv("STATBOARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// Validate reports the first setting that prevents the dashboard from starting.
func (c *Config) Validate() error {
	if c.Store.URL == "" {
		return errors.New("config: store url is required (set SUPABASE_URL)")
	}
	if c.Store.APIKey == "" {
		return errors.New("config: store api key is required (set SUPABASE_ANON_KEY)")
	}
	if c.Store.Table == "" {
		return errors.New("config: store table is required")
	}
	if c.Server.Addr == "" {
		return errors.New("config: server addr is required")
	}
	return nil
}

// TokenExpiry returns the viewer token lifetime.
func (s ServerConfig) TokenExpiry() time.Duration {
	if s.TokenExpiryHours <= 0 {
		return 90 * 24 * time.Hour
	}
	return time.Duration(s.TokenExpiryHours) * time.Hour
}
