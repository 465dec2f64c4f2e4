// Package config loads the liesym tool configuration.
//
// The file is TOML; every key is optional and overlays Default():
//
//	degree = 2
//	include_time = true
//	form = "polynomial"
//	max_iterations = 64
//	timeout = "30s"
//	cache_dir = "~/.cache/liesym"
//	cache_ttl = "168h"
//	server_addr = ":8080"
//	log_level = "info"
//	log_format = "text"
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/njchilds90/liesym/symmetry"
)

// Config is the resolved tool configuration.
type Config struct {
	Ansatz        symmetry.AnsatzOptions
	MaxIterations int
	Timeout       time.Duration
	// CacheDir is empty when caching is disabled.
	CacheDir   string
	CacheTTL   time.Duration
	ServerAddr string
	LogLevel   slog.Level
	LogFormat  string
}

type fileConfig struct {
	Degree        int    `toml:"degree"`
	IncludeTime   bool   `toml:"include_time"`
	Form          string `toml:"form"`
	MaxIterations int    `toml:"max_iterations"`
	Timeout       string `toml:"timeout"`
	CacheDir      string `toml:"cache_dir"`
	CacheTTL      string `toml:"cache_ttl"`
	ServerAddr    string `toml:"server_addr"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Ansatz:        symmetry.DefaultAnsatzOptions(),
		MaxIterations: symmetry.DefaultMaxIterations,
		Timeout:       time.Minute,
		ServerAddr:    ":8080",
		LogLevel:      slog.LevelInfo,
		LogFormat:     "text",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/liesym/config.toml or its home
// directory equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "liesym", "config.toml")
}

// Load overlays the file at path onto Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, keys[0].String())
	}

	if meta.IsDefined("degree") {
		if raw.Degree < 0 {
			return Config{}, fmt.Errorf("degree must not be negative, got %d", raw.Degree)
		}
		cfg.Ansatz.Degree = raw.Degree
	}
	if meta.IsDefined("include_time") {
		cfg.Ansatz.IncludeTime = raw.IncludeTime
	}
	if meta.IsDefined("form") {
		f, err := symmetry.ParseAnsatzForm(strings.TrimSpace(raw.Form))
		if err != nil {
			return Config{}, err
		}
		cfg.Ansatz.Form = f
	}
	if meta.IsDefined("max_iterations") {
		cfg.MaxIterations = raw.MaxIterations
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("cache_dir") {
		cfg.CacheDir = expandHome(strings.TrimSpace(raw.CacheDir))
	}
	if meta.IsDefined("cache_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CacheTTL))
		if err != nil {
			return Config{}, fmt.Errorf("parse cache_ttl: %w", err)
		}
		cfg.CacheTTL = d
	}
	if meta.IsDefined("server_addr") {
		cfg.ServerAddr = strings.TrimSpace(raw.ServerAddr)
	}
	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Config{}, fmt.Errorf("parse log_level: %w", err)
		}
	}
	if meta.IsDefined("log_format") {
		cfg.LogFormat = strings.TrimSpace(raw.LogFormat)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Logger returns a slog logger writing to w in the configured format and
// level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WorkspaceOptions returns the symmetry workspace options for c.
func (c Config) WorkspaceOptions(l *slog.Logger) []symmetry.Option {
	return []symmetry.Option{symmetry.WithLogger(l), symmetry.WithMaxIterations(c.MaxIterations)}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
