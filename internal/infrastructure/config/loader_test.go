package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doeshing/gadget-go/internal/domain"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	loader := NewFileLoader(path)
	loader.lookupEnv = func() map[string]string { return map[string]string{} }

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.DefaultCooldown, cfg.Dispatch.Cooldown)
	require.Equal(t, 10*time.Second, cfg.Remote.ReadTimeout)
	require.Equal(t, domain.SerialPortServiceUUID, cfg.Link.ServiceUUID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(domain.SecureFilePermissions), info.Mode().Perm())
}

func TestLoadParsesYAMLAndHydrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
dispatch:
  cooldown: 250ms
remote:
  endpoint: https://relay.example.com/send-command
  read_timeout: 3s
push:
  enabled: true
  url: nats://broker:4222
store:
  path: /var/lib/gadget/commands.db
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	loader := NewFileLoader(path)
	loader.lookupEnv = func() map[string]string { return map[string]string{} }

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, cfg.Dispatch.Cooldown)
	require.Equal(t, 3*time.Second, cfg.Remote.ReadTimeout)
	require.Equal(t, domain.DefaultTransportTimeout, cfg.Remote.ConnectTimeout)
	require.Equal(t, domain.DefaultPushTopic, cfg.Push.Topic)
	require.Equal(t, domain.DefaultMaxCacheEntries, cfg.Cache.MaxEntries)
	require.Equal(t, "/var/lib/gadget/commands.db", cfg.Store.Path)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewFileLoader(path)
	loader.lookupEnv = func() map[string]string {
		return map[string]string{
			"GADGET_REMOTE_ENDPOINT": "http://localhost:8080/cmd",
			"GADGET_COOLDOWN":        "2s",
			"GADGET_LINK_CHANNEL":    "3",
		}
	}

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080/cmd", cfg.Remote.Endpoint)
	require.Equal(t, 2*time.Second, cfg.Dispatch.Cooldown)
	require.Equal(t, uint8(3), cfg.Link.Channel)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dispatch: [oops"), 0o600))

	_, err := NewFileLoader(path).Load(context.Background())
	require.Error(t, err)
}

func TestDefaultConfigComesFromEmbeddedYAML(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "1", cfg.ConfigFormatVersion)
	require.Equal(t, domain.DefaultCooldown, cfg.Dispatch.Cooldown)
	require.Equal(t, domain.DefaultCacheTTL, cfg.Cache.TTL)
	require.Equal(t, domain.FramingNone, cfg.Link.Framing)
	require.Equal(t, domain.DefaultPushTopic, cfg.Push.Topic)
	require.Equal(t, "~/.gadget/commands.db", cfg.Store.Path)
}

func TestBackupAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dispatch:\n  cooldown: 5s\n"), 0o600))
	loader := NewFileLoader(path)
	loader.lookupEnv = func() map[string]string { return map[string]string{} }

	backup, err := loader.Backup()
	require.NoError(t, err)
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	require.Contains(t, string(data), "cooldown: 5s")

	_, err = loader.Reset()
	require.NoError(t, err)
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.DefaultCooldown, cfg.Dispatch.Cooldown)
}

func TestLoadFileIgnoresEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("remote:\n  endpoint: https://relay.example.com/send\n"), 0o600))
	t.Setenv("GADGET_REMOTE_ENDPOINT", "http://override.local")

	cfg, err := NewFileLoader(path).LoadFile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://relay.example.com/send", cfg.Remote.Endpoint)
	require.Equal(t, domain.DefaultTransportTimeout, cfg.Remote.ReadTimeout)
}
