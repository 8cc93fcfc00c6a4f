package link

import (
	"context"
	"io"
	"os"
)

// DialDevice opens a character device such as /dev/rfcomm0 that the system
// has already bound to the gadget.
func DialDevice(path string) Dialer {
	return func(ctx context.Context) (io.WriteCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.OpenFile(path, os.O_WRONLY, 0)
	}
}
