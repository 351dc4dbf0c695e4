package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:8265", cfg.API.Listen)
	assert.Equal(t, 256, cfg.Events.Buffer)
	assert.NotEmpty(t, cfg.Gateway.Default)
	assert.Empty(t, cfg.API.APIKey)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
api:
  listen: "0.0.0.0:9000"
  api_key: secret
events:
  buffer: 64
gateway:
  default: "https://gateway.example"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:9000", cfg.API.Listen)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, 64, cfg.Events.Buffer)
	assert.Equal(t, "https://gateway.example", cfg.Gateway.Default)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  api_key: secret
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:8265", cfg.API.Listen)
	assert.Equal(t, 256, cfg.Events.Buffer)
	assert.Equal(t, "secret", cfg.API.APIKey)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log_level: [broken"))
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log_level: loud"))
		assert.Error(t, err)
	})

	t.Run("bad listen address", func(t *testing.T) {
		_, err := Load(writeConfig(t, "api:\n  listen: localhost"))
		assert.Error(t, err)
	})
}
