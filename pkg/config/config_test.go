package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "wings.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[panel]
url = "https://panel.example.com"
token = "token123"

[api]

[docker]

[storage]

[logging]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "/var/run/docker.sock", cfg.Docker.Socket)
	assert.Equal(t, "/var/lib/nexus-wings/data", cfg.Storage.DataDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8081, cfg.GRPCPort())
	assert.Equal(t, "token123", cfg.BearerToken())
}

func TestLoadParsesOverrides(t *testing.T) {
	path := writeConfig(t, `
[panel]
url = "https://panel.example.com"
token_id = "tid-123"
token = "my-secret-token"

[api]
host = "127.0.0.1"
port = 9090

[docker]
socket = "/custom/containerd.sock"

[storage]
data_dir = "/data"

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://panel.example.com", cfg.Panel.URL)
	assert.Equal(t, "tid-123", cfg.Panel.TokenID)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, 9091, cfg.GRPCPort())
	assert.Equal(t, "/custom/containerd.sock", cfg.Docker.Socket)
	assert.Equal(t, "/data", cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "tid-123.my-secret-token", cfg.BearerToken())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
