package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", cfg.SchemaVersion, SchemaVersion)
	}
	if cfg.CredentialStore != "" {
		t.Errorf("CredentialStore = %q, want empty", cfg.CredentialStore)
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := NewConfig()
	cfg.Listen = "127.0.0.1:9000"
	cfg.UpstreamBaseURL = "http://localhost:4010"
	cfg.CredentialStore = "file"
	cfg.Stream.KeepAliveSeconds = 10
	cfg.Stream.MaxLifetimeSeconds = 60

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Listen != cfg.Listen {
		t.Errorf("Listen = %q, want %q", loaded.Listen, cfg.Listen)
	}
	if loaded.UpstreamBaseURL != cfg.UpstreamBaseURL {
		t.Errorf("UpstreamBaseURL = %q", loaded.UpstreamBaseURL)
	}
	if loaded.CredentialStore != "file" {
		t.Errorf("CredentialStore = %q", loaded.CredentialStore)
	}
	if loaded.Stream.KeepAliveSeconds != 10 || loaded.Stream.MaxLifetimeSeconds != 60 {
		t.Errorf("Stream = %+v", loaded.Stream)
	}
	if loaded.LastModified.IsZero() {
		t.Error("LastModified not set")
	}

	// No leftover temp file.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestListenAddr(t *testing.T) {
	os.Unsetenv(EnvHost)
	os.Unsetenv(EnvPort)

	cfg := NewConfig()
	if got := cfg.ListenAddr(); got != "0.0.0.0:8001" {
		t.Errorf("default ListenAddr = %q", got)
	}

	cfg.Listen = "127.0.0.1:9000"
	if got := cfg.ListenAddr(); got != "127.0.0.1:9000" {
		t.Errorf("configured ListenAddr = %q", got)
	}

	// Environment wins over config.
	t.Setenv(EnvPort, "7777")
	if got := cfg.ListenAddr(); got != "0.0.0.0:7777" {
		t.Errorf("env ListenAddr = %q", got)
	}
	t.Setenv(EnvHost, "127.0.0.1")
	if got := cfg.ListenAddr(); got != "127.0.0.1:7777" {
		t.Errorf("env ListenAddr = %q", got)
	}
}

func TestStreamDurations(t *testing.T) {
	cfg := NewConfig()
	if got := cfg.KeepAliveInterval(); got != 30*time.Second {
		t.Errorf("default KeepAliveInterval = %v", got)
	}
	if got := cfg.MaxStreamLifetime(); got != 5*time.Minute {
		t.Errorf("default MaxStreamLifetime = %v", got)
	}

	cfg.Stream.KeepAliveSeconds = 2
	cfg.Stream.MaxLifetimeSeconds = 9
	if got := cfg.KeepAliveInterval(); got != 2*time.Second {
		t.Errorf("KeepAliveInterval = %v", got)
	}
	if got := cfg.MaxStreamLifetime(); got != 9*time.Second {
		t.Errorf("MaxStreamLifetime = %v", got)
	}
}
