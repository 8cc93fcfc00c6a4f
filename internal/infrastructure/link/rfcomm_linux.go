//go:build linux

package link

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// DialRFCOMM connects a Bluetooth RFCOMM socket to address (AA:BB:CC:DD:EE:FF)
// on the given channel.
func DialRFCOMM(address string, channel uint8) Dialer {
	return func(ctx context.Context) (io.WriteCloser, error) {
		addr, err := parseBDAddr(address)
		if err != nil {
			return nil, err
		}
		fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
		if err != nil {
			return nil, fmt.Errorf("rfcomm socket: %w", err)
		}

		done := make(chan error, 1)
		go func() {
			done <- unix.Connect(fd, &unix.SockaddrRFCOMM{Addr: addr, Channel: channel})
		}()

		select {
		case err := <-done:
			if err != nil {
				_ = unix.Close(fd)
				return nil, fmt.Errorf("rfcomm connect %s/%d: %w", address, channel, err)
			}
		case <-ctx.Done():
			_ = unix.Close(fd)
			return nil, ctx.Err()
		}
		return os.NewFile(uintptr(fd), "rfcomm:"+address), nil
	}
}

// parseBDAddr converts a colon-separated Bluetooth address into the
// little-endian byte order the kernel expects.
func parseBDAddr(address string) ([6]uint8, error) {
	var out [6]uint8
	hw, err := net.ParseMAC(address)
	if err != nil || len(hw) != 6 {
		return out, fmt.Errorf("invalid bluetooth address %q", address)
	}
	for i := 0; i < 6; i++ {
		out[i] = hw[5-i]
	}
	return out, nil
}
