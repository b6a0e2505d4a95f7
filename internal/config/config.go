package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures where the device lives and how pidash runs against it.
type Config struct {
	BaseURL        string
	SessionFile    string
	LogFile        string
	LogLevel       string
	Refresh        time.Duration
	RequestTimeout time.Duration
}

const (
	defaultConfigPath     = "~/.config/pidash/config.toml"
	defaultBaseURL        = "http://raspberrypi.local:8080"
	defaultSessionFile    = "~/.config/pidash/session.toml"
	defaultLogFile        = "~/.local/state/pidash/pidash.log"
	defaultLogLevel       = "info"
	defaultRefresh        = 500 * time.Millisecond
	defaultRequestTimeout = 5 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BaseURL:        defaultBaseURL,
		SessionFile:    mustExpand(defaultSessionFile),
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		Refresh:        defaultRefresh,
		RequestTimeout: defaultRequestTimeout,
	}
}

// Load locates and parses the pidash config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		BaseURL          string `toml:"base_url"`
		SessionFile      string `toml:"session_file"`
		LogFile          string `toml:"log_file"`
		LogLevel         string `toml:"log_level"`
		RefreshMS        int64  `toml:"refresh_ms"`
		RequestTimeoutMS int64  `toml:"request_timeout_ms"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(raw.SessionFile); v != "" {
		cfg.SessionFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if raw.RefreshMS > 0 {
		cfg.Refresh = time.Duration(raw.RefreshMS) * time.Millisecond
	}
	if raw.RequestTimeoutMS > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutMS) * time.Millisecond
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
