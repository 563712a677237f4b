// ABOUTME: Client configuration resolved from RUNBOARD_* environment variables over an optional
// ABOUTME: YAML config file, with env taking precedence over file over defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults for anything neither the environment nor the config file sets.
const (
	DefaultServerURL = "http://127.0.0.1:7777"
	DefaultTailLines = 500
)

// ErrBadTail rejects non-positive historical tail sizes.
var ErrBadTail = errors.New("RUNBOARD_TAIL must be a positive integer")

// Config holds everything the dashboard needs to talk to an orchestrator.
type Config struct {
	ServerURL string `yaml:"server"`
	Token     string `yaml:"token"`
	DBPath    string `yaml:"db"`
	TailLines int    `yaml:"tail"`
}

// Load resolves the effective configuration. Order of precedence, highest
// first: RUNBOARD_* environment variables, the YAML config file, built-in
// defaults. The config file path itself comes from RUNBOARD_CONFIG and
// defaults to ~/.config/runboard/config.yaml; a missing file is not an error.
func Load() (*Config, error) {
	cfg := &Config{
		ServerURL: DefaultServerURL,
		TailLines: DefaultTailLines,
	}

	path := os.Getenv("RUNBOARD_CONFIG")
	if path == "" {
		path = filepath.Join(configDir(), "config.yaml")
	}
	if err := loadFile(cfg, path); err != nil {
		return nil, err
	}

	if v := os.Getenv("RUNBOARD_SERVER"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("RUNBOARD_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("RUNBOARD_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("RUNBOARD_TAIL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: got %q", ErrBadTail, v)
		}
		cfg.TailLines = n
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(configDir(), "runboard.db")
	}
	if cfg.TailLines <= 0 {
		return nil, fmt.Errorf("%w: got %d from config file", ErrBadTail, cfg.TailLines)
	}

	return cfg, nil
}

// loadFile overlays the YAML file onto cfg. Missing file is fine; a file that
// exists but does not parse is an error worth stopping for.
func loadFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	var file Config
	if err := yaml.Unmarshal(b, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if file.ServerURL != "" {
		cfg.ServerURL = file.ServerURL
	}
	if file.Token != "" {
		cfg.Token = file.Token
	}
	if file.DBPath != "" {
		cfg.DBPath = file.DBPath
	}
	if file.TailLines != 0 {
		cfg.TailLines = file.TailLines
	}
	return nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/tmp"
	}
	return filepath.Join(home, ".config", "runboard")
}
