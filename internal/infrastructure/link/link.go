// Package link implements the short-range byte-stream connection to a gadget
// in physical proximity. Writes are fire-and-forget: there is no
// acknowledgement channel, so a successful write is the only signal of delivery.
package link

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/ports"
)

// ErrNotConnected is wrapped in a *domain.LinkError when writing without a connection.
var ErrNotConnected = errors.New("not connected")

// Dialer opens the underlying stream.
type Dialer func(ctx context.Context) (io.WriteCloser, error)

// Link owns at most one open stream and reconnects only when asked to.
type Link struct {
	dial        Dialer
	frame       Framer
	serviceUUID string

	mu   sync.Mutex
	conn io.WriteCloser
}

// New builds a link around a dialer and a framing strategy.
func New(dial Dialer, frame Framer, serviceUUID string) *Link {
	if frame == nil {
		frame = FrameNone
	}
	return &Link{dial: dial, frame: frame, serviceUUID: serviceUUID}
}

// FromSettings picks the dialer and framer named in settings.
func FromSettings(settings domain.LinkSettings) (*Link, error) {
	frame, err := ParseFraming(settings.Framing)
	if err != nil {
		return nil, err
	}
	var dial Dialer
	switch settings.Mode {
	case domain.LinkModeDevice:
		dial = DialDevice(settings.Device)
	case domain.LinkModeRFCOMM, "":
		dial = DialRFCOMM(settings.Address, settings.Channel)
	default:
		return nil, errors.New("unknown link mode " + settings.Mode)
	}
	return New(dial, frame, settings.ServiceUUID), nil
}

// ServiceUUID is the service identifier the gadget advertises.
func (l *Link) ServiceUUID() string {
	return l.serviceUUID
}

// Connect opens the stream if it is not already open.
func (l *Link) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return nil
	}
	conn, err := l.dial(ctx)
	if err != nil {
		return &domain.LinkError{Op: "connect", Err: err}
	}
	l.conn = conn
	return nil
}

// IsConnected implements ports.LinkTransport.
func (l *Link) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Write sends one framed payload. A failed write drops the connection.
func (l *Link) Write(ctx context.Context, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return &domain.LinkError{Op: "write", Err: ErrNotConnected}
	}

	if dl, ok := l.conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		deadline, has := ctx.Deadline()
		if !has {
			deadline = time.Now().Add(domain.DefaultTransportTimeout)
		}
		_ = dl.SetWriteDeadline(deadline)
	}

	frame := l.frame(payload)
	n, err := l.conn.Write(frame)
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		_ = l.conn.Close()
		l.conn = nil
		return &domain.LinkError{Op: "write", Err: err}
	}
	return nil
}

// Close releases the stream.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

var _ ports.LinkTransport = (*Link)(nil)
