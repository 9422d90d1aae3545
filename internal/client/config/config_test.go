package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Empty(t, cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 16<<10, cfg.CompressThreshold)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.NotEmpty(t, cfg.ProjectsDir)
	assert.NotEmpty(t, cfg.DBPath)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MANUSCRIPT_SERVER", "http://example.com:9000")
	t.Setenv("MANUSCRIPT_COMPRESS_THRESHOLD", "0")
	t.Setenv("MANUSCRIPT_TIMEOUT", "5s")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:9000", cfg.ServerURL)
	assert.Equal(t, 0, cfg.CompressThreshold)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoad_FileAndFlags(t *testing.T) {
	file := filepath.Join(t.TempDir(), "client.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
server = "http://from-file"
projects_dir = "/tmp/books"
compress_threshold = 1024
`), 0600))

	v := New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, flags))
	require.NoError(t, flags.Parse([]string{"--server", "http://from-flag", "--timeout", "1m"}))

	cfg, err := Load(v, file)
	require.NoError(t, err)
	// Флаг важнее файла
	assert.Equal(t, "http://from-flag", cfg.ServerURL)
	assert.Equal(t, "/tmp/books", cfg.ProjectsDir)
	assert.Equal(t, 1024, cfg.CompressThreshold)
	assert.Equal(t, time.Minute, cfg.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "zero timeout", env: map[string]string{"MANUSCRIPT_TIMEOUT": "0s"}},
		{name: "negative threshold", env: map[string]string{"MANUSCRIPT_COMPRESS_THRESHOLD": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(New(), "")
			assert.Error(t, err)
		})
	}

	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
