// Package connectivity answers which transports are usable right now.
package connectivity

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/ports"
)

// Probe implements ports.ConnectivityProbe. Internet reachability is a TCP
// dial to the relay host, remembered for a short TTL so that bursts of
// submissions do not each pay for a handshake. Link and push state are read
// live from their adapters.
type Probe struct {
	target  string
	timeout time.Duration
	ttl     time.Duration
	link    ports.LinkTransport
	push    ports.PushChannel
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
	now     func() time.Time

	mu        sync.Mutex
	checkedAt time.Time
	reachable bool
}

// NewProbe builds a probe for the relay endpoint. link and push may be nil.
func NewProbe(endpoint string, settings domain.ConnectivitySettings, link ports.LinkTransport, push ports.PushChannel) *Probe {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultProbeTimeout
	}
	ttl := settings.TTL
	if ttl <= 0 {
		ttl = domain.DefaultProbeTTL
	}
	d := &net.Dialer{}
	return &Probe{
		target:  dialTarget(endpoint),
		timeout: timeout,
		ttl:     ttl,
		link:    link,
		push:    push,
		dial:    d.DialContext,
		now:     time.Now,
	}
}

// NewOfflineProbe never reports the internet as reachable but still reads the
// link and push state live, so a link that drops mid-session is noticed.
func NewOfflineProbe(settings domain.ConnectivitySettings, link ports.LinkTransport, push ports.PushChannel) *Probe {
	return NewProbe("", settings, link, push)
}

// dialTarget turns "https://relay.example.com/send" into "relay.example.com:443".
func dialTarget(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// State implements ports.ConnectivityProbe.
func (p *Probe) State(ctx context.Context) domain.ConnectivityState {
	state := domain.ConnectivityState{InternetReachable: p.internet(ctx)}
	if p.link != nil {
		state.LinkConnected = p.link.IsConnected()
	}
	if p.push != nil {
		state.PushConnected = p.push.Connected()
	}
	return state
}

func (p *Probe) internet(ctx context.Context) bool {
	if p.target == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if !p.checkedAt.IsZero() && now.Sub(p.checkedAt) < p.ttl {
		return p.reachable
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dial(dialCtx, "tcp", p.target)
	p.reachable = err == nil
	if conn != nil {
		_ = conn.Close()
	}
	p.checkedAt = now
	return p.reachable
}

// Invalidate forgets the cached reachability result.
func (p *Probe) Invalidate() {
	p.mu.Lock()
	p.checkedAt = time.Time{}
	p.mu.Unlock()
}

// Static reports a fixed state, for tests.
type Static domain.ConnectivityState

// State implements ports.ConnectivityProbe.
func (s Static) State(context.Context) domain.ConnectivityState {
	return domain.ConnectivityState(s)
}

var (
	_ ports.ConnectivityProbe = (*Probe)(nil)
	_ ports.ConnectivityProbe = Static{}
)
