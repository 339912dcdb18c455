package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat262.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
  log_level: debug
client:
  server_addr: "example.invalid:9999"
  poll_interval: 5s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Server.Addr)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "example.invalid:9999", cfg.Client.ServerAddr)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/chat262.yaml")
	require.Error(t, err)
}

func TestValidateRejectsBadPollInterval(t *testing.T) {
	cfg := Default()
	cfg.Client.PollInterval = 0
	require.Error(t, cfg.Validate())
}
