package link

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/doeshing/gadget-go/internal/domain"
)

func pipeDialer(t *testing.T) (Dialer, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })
	return func(context.Context) (io.WriteCloser, error) { return client, nil }, server
}

func readN(conn net.Conn, n int) []byte {
	buf := make([]byte, n)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil
	}
	return buf
}

func TestWriteWithoutConnection(t *testing.T) {
	l := New(func(context.Context) (io.WriteCloser, error) { return nil, errors.New("no adapter") }, nil, "")

	require.False(t, l.IsConnected())
	err := l.Write(context.Background(), []byte("x"))
	require.ErrorIs(t, err, domain.ErrLink)
	require.ErrorIs(t, err, ErrNotConnected)

	err = l.Connect(context.Background())
	require.ErrorIs(t, err, domain.ErrLink)
	require.False(t, l.IsConnected())
}

func TestWriteRawBytes(t *testing.T) {
	dial, server := pipeDialer(t)
	l := New(dial, FrameNone, domain.SerialPortServiceUUID)
	require.NoError(t, l.Connect(context.Background()))
	require.True(t, l.IsConnected())

	got := make(chan []byte, 1)
	go func() { got <- readN(server, len("raise temperature")) }()

	require.NoError(t, l.Write(context.Background(), []byte("raise temperature")))
	require.Equal(t, "raise temperature", string(<-got))
}

func TestWriteLengthFramed(t *testing.T) {
	dial, server := pipeDialer(t)
	l := New(dial, FrameLength, "")
	require.NoError(t, l.Connect(context.Background()))

	got := make(chan []byte, 1)
	go func() { got <- readN(server, 4+len("lights on")) }()

	require.NoError(t, l.Write(context.Background(), []byte("lights on")))
	frame := <-got
	require.Len(t, frame, 4+len("lights on"))
	require.Equal(t, uint32(len("lights on")), binary.BigEndian.Uint32(frame[:4]))
	require.Equal(t, "lights on", string(frame[4:]))
}

func TestWriteFailureDropsConnection(t *testing.T) {
	dial, server := pipeDialer(t)
	l := New(dial, FrameNone, "")
	require.NoError(t, l.Connect(context.Background()))
	require.NoError(t, server.Close())

	err := l.Write(context.Background(), []byte("x"))
	require.ErrorIs(t, err, domain.ErrLink)
	require.False(t, l.IsConnected())
}

func TestParseFraming(t *testing.T) {
	for _, name := range []string{"", domain.FramingNone, domain.FramingNewline, domain.FramingLength} {
		_, err := ParseFraming(name)
		require.NoError(t, err, name)
	}
	_, err := ParseFraming("slip")
	require.Error(t, err)

	require.Equal(t, []byte("on\n"), FrameNewline([]byte("on")))
}

func TestDeviceModeWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfcomm0")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	l, err := FromSettings(domain.LinkSettings{Mode: domain.LinkModeDevice, Device: path, Framing: domain.FramingNewline})
	require.NoError(t, err)
	require.NoError(t, l.Connect(context.Background()))
	require.NoError(t, l.Write(context.Background(), []byte("lights on")))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "lights on\n", string(data))
}

func TestFromSettingsRejectsUnknownMode(t *testing.T) {
	_, err := FromSettings(domain.LinkSettings{Mode: "usb"})
	require.Error(t, err)
}
