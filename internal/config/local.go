package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig holds configuration for local daemon mode
type LocalConfig struct {
	Daemon  DaemonConfig  `yaml:"daemon"`
	Storage StorageConfig `yaml:"storage"`
	Events  EventsConfig  `yaml:"events"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"`
	LogLevel string `yaml:"log_level"`
}

// StorageConfig holds project storage settings
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url,omitempty"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	DataDir     string `yaml:"data_dir,omitempty"`
	Resilient   bool   `yaml:"resilient"`
}

// EventsConfig holds event publishing settings
type EventsConfig struct {
	AMQPURL string `yaml:"amqp_url,omitempty"`
}

// CraftpadDir returns the path to ~/.craftpad
func CraftpadDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".craftpad"), nil
}

// EnsureCraftpadDir creates ~/.craftpad and subdirectories if they don't exist
func EnsureCraftpadDir() (string, error) {
	dir, err := CraftpadDir()
	if err != nil {
		return "", err
	}

	subdirs := []string{
		"",
		"logs",
		"projects",
		"data",
	}

	for _, subdir := range subdirs {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:     7433,
			Bind:     "127.0.0.1",
			LogLevel: "info",
		},
		Storage: StorageConfig{
			Backend:   BackendSQLite,
			Resilient: true,
		},
	}
}

// LoadLocalConfig loads configuration from ~/.craftpad/config.yaml and
// applies environment variable overrides on top.
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := CraftpadDir()
	if err != nil {
		return nil, err
	}

	cfg := DefaultLocalConfig()

	configPath := filepath.Join(dir, "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveLocalConfig saves configuration to ~/.craftpad/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureCraftpadDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(dir, "config.yaml")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
