// Package config handles Meridian configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all configuration
type Config struct {
	// Paths
	DataDir string `json:"data_dir"`

	// Server
	Server ServerConfig `json:"server"`

	// Services
	Claude ClaudeConfig `json:"claude"`

	// Surfacing
	Surface SurfaceConfig `json:"surface"`

	// Logging
	LogLevel string `json:"log_level"`
}

// ServerConfig for HTTP server
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// ClaudeConfig for Claude API
type ClaudeConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// SurfaceConfig tunes the ranked view
type SurfaceConfig struct {
	QueueSize int `json:"queue_size"`
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir: filepath.Join(home, ".meridian"),
		Server: ServerConfig{
			Port: 8580,
			Host: "localhost",
		},
		Claude: ClaudeConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  "claude-sonnet-4-20250514",
		},
		Surface: SurfaceConfig{
			QueueSize: 2,
		},
		LogLevel: "info",
	}
}

// Load loads config from file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Override API key from env if set
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		cfg.Claude.APIKey = apiKey
	}

	return cfg, nil
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.json")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	// Don't save API key to file
	safeCfg := *c
	safeCfg.Claude.APIKey = ""

	data, err := json.MarshalIndent(safeCfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DatabasePath returns the sqlite file location under DataDir
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "meridian.db")
}
