package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/ports"
)

// HTTPTransport posts commands to the cloud relay. Each call is a single
// round trip; retries are the caller's decision.
type HTTPTransport struct {
	endpoint   string
	tokenEnv   string
	httpClient *http.Client
}

// NewHTTPTransport builds a transport whose connections honour separate
// connect, read and write timeouts.
func NewHTTPTransport(settings domain.RemoteSettings) *HTTPTransport {
	return &HTTPTransport{
		endpoint:   settings.Endpoint,
		tokenEnv:   settings.TokenEnv,
		httpClient: &http.Client{Transport: newRoundTripper(settings)},
	}
}

func newRoundTripper(settings domain.RemoteSettings) *http.Transport {
	connect := orDefault(settings.ConnectTimeout)
	read := orDefault(settings.ReadTimeout)
	write := orDefault(settings.WriteTimeout)

	dialer := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, read: read, write: write}, nil
		},
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		MaxIdleConns:          4,
		IdleConnTimeout:       idleTimeout(read),
	}
}

// idleTimeout retires pooled connections well before the per-read deadline
// would fire on them, so a POST is never written to a conn about to time out.
func idleTimeout(read time.Duration) time.Duration {
	return read / 2
}

// Endpoint returns the configured relay URL.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Send implements ports.RemoteTransport. A 2xx body is the gadget's reply;
// anything else is a *domain.NetworkError.
func (t *HTTPTransport) Send(ctx context.Context, command string) (string, error) {
	if t.endpoint == "" {
		return "", &domain.NetworkError{Err: errors.New("remote endpoint not configured")}
	}

	form := url.Values{"command": {command}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &domain.NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if t.tokenEnv != "" {
		if token := os.Getenv(t.tokenEnv); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, domain.MaxResponseBytes))
		return "", &domain.NetworkError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, domain.MaxResponseBytes))
	if err != nil {
		return "", &domain.NetworkError{Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}

// deadlineConn refreshes the read or write deadline before every I/O call,
// giving each direction its own idle timeout.
type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return domain.DefaultTransportTimeout
	}
	return d
}

var _ ports.RemoteTransport = (*HTTPTransport)(nil)
