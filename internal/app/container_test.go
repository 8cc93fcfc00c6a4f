package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doeshing/gadget-go/internal/domain"
)

func buildTestContainer(t *testing.T, configYAML string) *Container {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GADGET_CONFIG", "")
	t.Setenv("GADGET_STORE_PATH", filepath.Join(home, "commands.db"))

	path := filepath.Join(home, "config.yaml")
	if configYAML != "" {
		require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))
	}
	c, err := BuildContainer(context.Background(), Options{ConfigPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBuildContainerWithDefaults(t *testing.T) {
	c := buildTestContainer(t, "")

	require.NoError(t, c.Ready())
	require.Nil(t, c.Link)
	require.Nil(t, c.Push)
	require.NotNil(t, c.Dispatcher)
	require.NotNil(t, c.Reconciler)
	require.FileExists(t, c.ConfigLoader.Path())
}

func TestGoOfflineNeverReachesRelay(t *testing.T) {
	c := buildTestContainer(t, "")
	c.GoOffline()

	state := c.Dispatcher.Connectivity.State(context.Background())
	require.False(t, state.InternetReachable)
	require.False(t, state.LinkConnected)

	_, err := c.Dispatcher.Submit(context.Background(), "lights on")
	require.ErrorIs(t, err, domain.ErrNoTransportAvailable)
	all, err := c.CommandStore.List(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestInvalidConfigStillBuilds(t *testing.T) {
	c := buildTestContainer(t, "remote:\n  endpoint: ftp://relay\n")

	require.ErrorContains(t, c.Ready(), "remote.endpoint")
	require.NotNil(t, c.ConfigLoader)
	require.Nil(t, c.Link)
}
