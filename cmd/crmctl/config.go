package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// cliConfig is persisted at ~/.config/crmctl/config.yaml
type cliConfig struct {
	Server       string        `yaml:"server"`
	Email        string        `yaml:"email,omitempty"`
	Token        string        `yaml:"token,omitempty"`
	RefreshToken string        `yaml:"refresh_token,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	Dialer       dialerConfig  `yaml:"dialer"`
}

type dialerConfig struct {
	// Command runs once per call; {phone} is replaced by the number
	Command    string `yaml:"command"`
	DeviceInfo string `yaml:"device_info,omitempty"`
}

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 30 * time.Second
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "crmctl", "config.yaml")
	}
	return filepath.Join(home, ".config", "crmctl", "config.yaml")
}

// loadConfig reads path; a missing file yields defaults
func loadConfig(path string) (*cliConfig, error) {
	cfg := &cliConfig{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg, nil
}

// applyEnv lets CRMCTL_SERVER and CRMCTL_TOKEN override the file
func (c *cliConfig) applyEnv() {
	if v := os.Getenv("CRMCTL_SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv("CRMCTL_TOKEN"); v != "" {
		c.Token = v
	}
}

func saveConfig(path string, cfg *cliConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	// tokens live in here
	return os.WriteFile(path, data, 0o600)
}
