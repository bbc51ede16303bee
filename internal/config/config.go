// Package config provides centralized configuration for gitlane.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application-wide configuration.
type Config struct {
	// RepoPath is a directory inside the repository to display.
	RepoPath string `yaml:"repo"`
	// Addr is the listen address of the HTTP server.
	Addr string `yaml:"addr"`

	// Approximation is the lookahead depth of the commit ordering walk.
	Approximation int `yaml:"approximation"`
	MaxColors     int `yaml:"max_colors"`
	// MaxWidth is the widest graph, in columns, the renderer accepts.
	MaxWidth int `yaml:"max_width"`
	// MaxCommits stops a load after that many commits; 0 loads everything.
	MaxCommits int `yaml:"max_commits"`
	CacheSize  int `yaml:"cache_size"`

	LogLevel         string        `yaml:"log_level"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	WatchDebounce    time.Duration `yaml:"watch_debounce"`

	envErrs []error
}

// DefaultConfig returns the default configuration, reading from environment variables.
func DefaultConfig() *Config {
	c := &Config{
		RepoPath:         ".",
		Addr:             ":8080",
		Approximation:    32,
		MaxColors:        6,
		MaxWidth:         128,
		CacheSize:        4096,
		LogLevel:         "info",
		ProgressInterval: 500 * time.Millisecond,
		WatchDebounce:    250 * time.Millisecond,
	}

	c.envString("GITLANE_REPO", &c.RepoPath)
	c.envString("GITLANE_ADDR", &c.Addr)
	c.envInt("GITLANE_APPROXIMATION", &c.Approximation)
	c.envInt("GITLANE_GRAPH_MAX_COLORS", &c.MaxColors)
	c.envInt("GITLANE_GRAPH_MAX_WIDTH", &c.MaxWidth)
	c.envInt("GITLANE_MAX_COMMITS", &c.MaxCommits)
	c.envInt("GITLANE_CACHE_SIZE", &c.CacheSize)
	c.envString("GITLANE_LOG_LEVEL", &c.LogLevel)
	c.envDuration("GITLANE_PROGRESS_INTERVAL", &c.ProgressInterval)
	c.envDuration("GITLANE_WATCH_DEBOUNCE", &c.WatchDebounce)
	return c
}

// Global is the application-wide configuration instance.
var Global = DefaultConfig()

// LoadFile overlays the YAML file at path onto c. Keys missing from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate reports every invalid setting, including malformed environment
// variables.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)
	if c.RepoPath == "" {
		errs = append(errs, errors.New("repo path is empty"))
	}
	if c.Approximation < 1 {
		errs = append(errs, fmt.Errorf("approximation must be at least 1, got %d", c.Approximation))
	}
	if c.MaxColors < 1 || c.MaxColors > 255 {
		errs = append(errs, fmt.Errorf("max colors must be within 1..255, got %d", c.MaxColors))
	}
	if c.MaxWidth < 1 {
		errs = append(errs, fmt.Errorf("max width must be at least 1, got %d", c.MaxWidth))
	}
	if c.MaxCommits < 0 {
		errs = append(errs, fmt.Errorf("max commits must not be negative, got %d", c.MaxCommits))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache size must not be negative, got %d", c.CacheSize))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("progress interval must be positive, got %s", c.ProgressInterval))
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("watch debounce must not be negative, got %s", c.WatchDebounce))
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (c *Config) envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("%s: %q is not an integer", key, v))
		return
	}
	*dst = n
}

func (c *Config) envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("%s: %q is not a duration", key, v))
		return
	}
	*dst = d
}
