package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
remote:
  base_url: "http://store.example.com/api/v1"
  ws_url: "ws://store.example.com/api/v1/subscribe"
  request_timeout: 5s
cache:
  message_capacity: 50
client:
  machine_id: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://store.example.com/api/v1", cfg.Remote.BaseURL)
	assert.Equal(t, "ws://store.example.com/api/v1/subscribe", cfg.Remote.WSURL)
	assert.Equal(t, 5*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, 50, cfg.Cache.MessageCapacity)
	assert.Equal(t, uint16(7), cfg.Client.MachineId)

	// Unset values fall back to defaults
	assert.Equal(t, 10*time.Second, cfg.Remote.DialTimeout)
	assert.Equal(t, time.Second, cfg.Remote.ReconnectBackoff)
	assert.Equal(t, 30*time.Second, cfg.Remote.MaxBackoff)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 200, cfg.Cache.MessageCapacity)
	assert.Equal(t, 30*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, uint16(1), cfg.Client.MachineId)
}
