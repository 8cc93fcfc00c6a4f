package helpers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doeshing/gadget-go/internal/domain"
	configinfra "github.com/doeshing/gadget-go/internal/infrastructure/config"
)

func TestConfigPathRoundTrip(t *testing.T) {
	m, err := ConfigToMap(configinfra.DefaultConfig())
	require.NoError(t, err)

	v, ok := LookupPath(m, "push.topic")
	require.True(t, ok)
	require.Equal(t, domain.DefaultPushTopic, v)

	require.NoError(t, SetPath(m, "dispatch.cooldown", ParseYAMLValue("3s")))
	require.NoError(t, SetPath(m, "link.channel", ParseYAMLValue("4")))
	cfg, err := MapToConfig(m)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.Dispatch.Cooldown)
	require.Equal(t, uint8(4), cfg.Link.Channel)
}

func TestSetPathRejectsUnknownKeys(t *testing.T) {
	m, err := ConfigToMap(configinfra.DefaultConfig())
	require.NoError(t, err)

	require.ErrorContains(t, SetPath(m, "remote.endpiont", "x"), "unknown key remote.endpiont")
	require.ErrorContains(t, SetPath(m, "remote", "x"), "section")
	require.ErrorContains(t, SetPath(m, "remote.endpoint.host", "x"), "not a section")
}

func TestAnalyzeCommands(t *testing.T) {
	stats := AnalyzeCommands([]domain.Command{
		{Text: "Lights on", Status: domain.StatusSuccess, Transport: domain.TransportRemote},
		{Text: "lights  on", Status: domain.StatusSuccess, Transport: domain.TransportCache},
		{Text: "raise temperature", Status: domain.StatusFailed, Transport: domain.TransportLink},
		{Text: "open door", Status: domain.StatusPending},
	}, 2)

	require.Equal(t, 4, stats.Total)
	require.Equal(t, 2, stats.Succeeded)
	require.Equal(t, 1, stats.Pending)
	require.InDelta(t, 66.6, stats.SuccessRate(), 0.1)
	require.Equal(t, 1, stats.ByTransport[domain.TransportCache])
	require.Equal(t, []CommandStatistic{{"lights on", 2}, {"open door", 1}}, stats.Top)
}

func TestRenderResultPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	RenderResult(&buf, domain.SubmitResult{
		Command:   domain.Command{ID: 7, Status: domain.StatusSuccess, Transport: domain.TransportCache},
		Response:  "OK",
		FromCache: true,
		Transport: domain.TransportCache,
	})
	require.Equal(t, "#7 success via cache\n  OK\n  answered from cache\n", buf.String())
}

func TestRenderCommands(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	RenderCommands(&buf, []domain.Command{{
		ID:        3,
		Text:      "lights on",
		Status:    domain.StatusPending,
		CreatedAt: now.Add(-2 * time.Minute),
	}}, now)
	require.Contains(t, buf.String(), "2 minutes ago")
	require.Contains(t, buf.String(), "lights on -> -")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	require.Equal(t, "a b", Truncate("a\nb", 10))
}

func TestIsTerminalRejectsBuffersAndFiles(t *testing.T) {
	require.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()
	require.False(t, IsTerminal(f))
}
