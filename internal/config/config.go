// Package config provides configuration schema and persistence for spamrelay.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	configDir  = ".config/spamrelay"
	configFile = "config.json"
)

// SchemaVersion is the current config schema version.
const SchemaVersion = 1

// Environment variables that override the listen address.
const (
	EnvHost = "MCP_SERVER_HOST"
	EnvPort = "MCP_SERVER_PORT"
)

// Defaults applied when a field is absent from the config file.
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = "8001"
	DefaultKeepAliveSeconds = 30
	DefaultMaxLifetimeSecs  = 300
)

// StreamConfig controls the long-lived GET event stream.
type StreamConfig struct {
	// KeepAliveSeconds is the interval between keep-alive comment frames.
	KeepAliveSeconds int `json:"keepAliveSeconds,omitempty"`
	// MaxLifetimeSeconds is the hard cap on a single stream's lifetime.
	MaxLifetimeSeconds int `json:"maxLifetimeSeconds,omitempty"`
}

// Config is the root configuration structure.
type Config struct {
	SchemaVersion int `json:"schemaVersion"`

	// Listen is the host:port the HTTP server binds to.
	Listen string `json:"listen,omitempty"`

	// UpstreamBaseURL overrides the upstream lookup API endpoint.
	// Empty means the vendor default.
	UpstreamBaseURL string `json:"upstreamBaseUrl,omitempty"`

	// CredentialStore selects where the upstream credential pair is read
	// from: "env" (default), "file", or "keyring".
	CredentialStore string `json:"credentialStore,omitempty"`

	Stream StreamConfig `json:"stream,omitempty"`

	LastModified time.Time `json:"lastModified"`
}

// NewConfig creates a new configuration with default values.
func NewConfig() *Config {
	return &Config{
		SchemaVersion: SchemaVersion,
		LastModified:  time.Now(),
	}
}

// ListenAddr resolves the listen address: environment variables win over
// the config file, which wins over the built-in default.
func (c *Config) ListenAddr() string {
	host := os.Getenv(EnvHost)
	port := os.Getenv(EnvPort)
	if host != "" || port != "" {
		if host == "" {
			host = DefaultHost
		}
		if port == "" {
			port = DefaultPort
		}
		return host + ":" + port
	}
	if c.Listen != "" {
		return c.Listen
	}
	return DefaultHost + ":" + DefaultPort
}

// KeepAliveInterval returns the keep-alive frame interval.
func (c *Config) KeepAliveInterval() time.Duration {
	secs := c.Stream.KeepAliveSeconds
	if secs <= 0 {
		secs = DefaultKeepAliveSeconds
	}
	return time.Duration(secs) * time.Second
}

// MaxStreamLifetime returns the hard cap on a GET stream's lifetime.
func (c *Config) MaxStreamLifetime() time.Duration {
	secs := c.Stream.MaxLifetimeSeconds
	if secs <= 0 {
		secs = DefaultMaxLifetimeSecs
	}
	return time.Duration(secs) * time.Second
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, configDir, configFile), nil
}

// Load reads the configuration from the default path.
// Returns a new default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from a specific path.
// Returns a new default config if the file doesn't exist.
func LoadFrom(path string) (*Config, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.SchemaVersion == 0 {
		cfg.SchemaVersion = SchemaVersion
	}
	return &cfg, nil
}

// Save writes the configuration to the default path atomically.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration to a specific path atomically.
// Uses a temp file + rename pattern for atomic writes.
func SaveTo(cfg *Config, path string) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	cfg.LastModified = time.Now()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
