package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/quill/internal/research"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ddgr", cfg.Search.Command)
	assert.Equal(t, 10, cfg.Search.NumResults)
	assert.Equal(t, 30*time.Second, cfg.Search.CommandTimeout)
	assert.Equal(t, "https://html.duckduckgo.com/html/", cfg.Search.HTMLEndpoint)
	assert.Equal(t, 15*time.Second, cfg.Search.HTMLTimeout)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, "chrome", cfg.Search.Fingerprint)
	assert.InDelta(t, 1.0, cfg.Search.RequestsPerSecond, 1e-9)
	assert.Equal(t, research.DefaultVariations, cfg.Search.Variations)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.yaml")
	content := `search:
  command: /opt/bin/ddgr
  command_timeout: 5s
  fingerprint: firefox
  variations:
    - "{query} explained"
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/bin/ddgr", cfg.Search.Command)
	assert.Equal(t, 5*time.Second, cfg.Search.CommandTimeout)
	assert.Equal(t, "firefox", cfg.Search.Fingerprint)
	assert.Equal(t, []string{"{query} explained"}, cfg.Search.Variations)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Search.NumResults)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("QUILL_SEARCH_NUM_RESULTS", "25")
	t.Setenv("QUILL_SEARCH_HTML_TIMEOUT", "2s")
	t.Setenv("QUILL_METRICS_TEXTFILE", "/tmp/quill.prom")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Search.NumResults)
	assert.Equal(t, 2*time.Second, cfg.Search.HTMLTimeout)
	assert.Equal(t, "/tmp/quill.prom", cfg.Metrics.Textfile)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"empty command", func(c *Config) { c.Search.Command = " " }, "search.command"},
		{"zero results", func(c *Config) { c.Search.NumResults = 0 }, "search.num_results"},
		{"zero max", func(c *Config) { c.Search.MaxResults = 0 }, "search.max_results"},
		{"bad jitter", func(c *Config) { c.Search.Jitter = 1.5 }, "search.jitter"},
		{"bad fingerprint", func(c *Config) { c.Search.Fingerprint = "netscape" }, "search.fingerprint"},
		{"blank variation", func(c *Config) { c.Search.Variations = []string{""} }, "search.variations"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
