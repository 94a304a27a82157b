package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8580 {
		t.Errorf("expected default port 8580, got %d", cfg.Server.Port)
	}
	if cfg.Surface.QueueSize != 2 {
		t.Errorf("expected default queue size 2, got %d", cfg.Surface.QueueSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if !strings.HasSuffix(cfg.DataDir, ".meridian") {
		t.Errorf("expected data dir under home, got %q", cfg.DataDir)
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load should fall back to defaults: %v", err)
	}
	if cfg.Server.Port != 8580 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.Server.Port = 9000
	cfg.Surface.QueueSize = 4
	cfg.LogLevel = "debug"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", loaded.Server.Port)
	}
	if loaded.Surface.QueueSize != 4 {
		t.Errorf("expected queue size 4, got %d", loaded.Surface.QueueSize)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", loaded.LogLevel)
	}
}

func TestConfig_SaveNeverPersistsAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.Claude.APIKey = "sk-secret"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if strings.Contains(string(data), "sk-secret") {
		t.Error("API key must not be written to disk")
	}
}

func TestConfig_EnvOverridesAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.Claude.APIKey != "sk-from-env" {
		t.Errorf("expected env key to win, got %q", loaded.Claude.APIKey)
	}
}
