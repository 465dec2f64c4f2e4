package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/liesym/internal/config"
	"github.com/njchilds90/liesym/symmetry"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	cfg, err := config.Load(write(t, `
degree = 2
form = "function"
timeout = "5s"
log_level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Ansatz.Degree)
	assert.Equal(t, symmetry.FunctionForm, cfg.Ansatz.Form)
	assert.True(t, cfg.Ansatz.IncludeTime)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, config.Default().ServerAddr, cfg.ServerAddr)
	assert.Equal(t, symmetry.DefaultMaxIterations, cfg.MaxIterations)
}

func TestLoadExplicitFalse(t *testing.T) {
	cfg, err := config.Load(write(t, "include_time = false\ncache_dir = \"/tmp/liesym\"\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Ansatz.IncludeTime)
	assert.Equal(t, "/tmp/liesym", cfg.CacheDir)
}

func TestLoadDegreeZero(t *testing.T) {
	cfg, err := config.Load(write(t, "degree = 0\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Ansatz.Degree)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "colour = \"red\"\n",
		"bad degree":    "degree = -1\n",
		"bad form":      "form = \"spline\"\n",
		"bad timeout":   "timeout = \"soon\"\n",
		"bad level":     "log_level = \"loud\"\n",
		"bad format":    "log_format = \"xml\"\n",
		"bad budget":    "max_iterations = 0\n",
		"invalid toml":  "degree = \n",
		"bad cache ttl": "cache_ttl = \"week\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(write(t, body))
			assert.Error(t, err)
		})
	}
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	cfg := config.Default()
	cfg.LogFormat = "json"
	var buf bytes.Buffer
	cfg.Logger(&buf).Info("hello", slog.String("system", "saddle"))
	assert.Contains(t, buf.String(), `"system":"saddle"`)

	buf.Reset()
	cfg.LogFormat = "text"
	cfg.Logger(&buf).Debug("hidden")
	assert.Empty(t, buf.String())
}
