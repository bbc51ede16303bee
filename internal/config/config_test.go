package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, ".", c.RepoPath)
	assert.Equal(t, 32, c.Approximation)
	assert.Equal(t, 6, c.MaxColors)
	assert.Equal(t, 128, c.MaxWidth)
	assert.Zero(t, c.MaxCommits)
	assert.NoError(t, c.Validate())
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("GITLANE_REPO", "/srv/repo")
	t.Setenv("GITLANE_APPROXIMATION", "8")
	t.Setenv("GITLANE_GRAPH_MAX_WIDTH", "40")
	t.Setenv("GITLANE_PROGRESS_INTERVAL", "2s")

	c := DefaultConfig()
	assert.Equal(t, "/srv/repo", c.RepoPath)
	assert.Equal(t, 8, c.Approximation)
	assert.Equal(t, 40, c.MaxWidth)
	assert.Equal(t, 2*time.Second, c.ProgressInterval)
	assert.NoError(t, c.Validate())
}

func TestMalformedEnvFailsValidation(t *testing.T) {
	t.Setenv("GITLANE_GRAPH_MAX_COLORS", "lots")
	t.Setenv("GITLANE_WATCH_DEBOUNCE", "soon")

	c := DefaultConfig()
	assert.Equal(t, 6, c.MaxColors, "bad values keep the default")

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITLANE_GRAPH_MAX_COLORS")
	assert.Contains(t, err.Error(), "GITLANE_WATCH_DEBOUNCE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"approximation", func(c *Config) { c.Approximation = 0 }, "approximation"},
		{"colors low", func(c *Config) { c.MaxColors = 0 }, "max colors"},
		{"colors high", func(c *Config) { c.MaxColors = 256 }, "max colors"},
		{"width", func(c *Config) { c.MaxWidth = 0 }, "max width"},
		{"commits", func(c *Config) { c.MaxCommits = -1 }, "max commits"},
		{"level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"progress", func(c *Config) { c.ProgressInterval = 0 }, "progress interval"},
		{"repo", func(c *Config) { c.RepoPath = "" }, "repo path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gitlane.yaml")
	content := strings.Join([]string{
		"repo: /tmp/project",
		"max_colors: 12",
		"log_level: debug",
		"progress_interval: 250ms",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c := DefaultConfig()
	require.NoError(t, c.LoadFile(path))
	assert.Equal(t, "/tmp/project", c.RepoPath)
	assert.Equal(t, 12, c.MaxColors)
	assert.Equal(t, 128, c.MaxWidth, "keys missing from the file are kept")
	assert.Equal(t, 250*time.Millisecond, c.ProgressInterval)
	assert.NoError(t, c.Validate())

	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	c := DefaultConfig()
	c.LogLevel = "warn"

	log := c.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "k=1")
}
