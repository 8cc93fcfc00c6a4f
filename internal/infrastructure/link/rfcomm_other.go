//go:build !linux

package link

import (
	"context"
	"errors"
	"io"
)

// DialRFCOMM is only available on Linux; elsewhere use device mode.
func DialRFCOMM(address string, channel uint8) Dialer {
	return func(context.Context) (io.WriteCloser, error) {
		return nil, errors.New("rfcomm sockets are only supported on linux; use link.mode=device")
	}
}
