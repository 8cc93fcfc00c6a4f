package cooldown

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/doeshing/gadget-go/internal/ports"
)

// Gate enforces a minimum interval between accepted submissions. It is a
// token bucket of size one refilled once per interval.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	lim      *rate.Limiter
}

// NewGate returns a gate with the given interval. Zero disables throttling.
func NewGate(interval time.Duration) *Gate {
	g := &Gate{interval: interval}
	g.lim = g.newLimiter()
	return g
}

func (g *Gate) newLimiter() *rate.Limiter {
	if g.interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(g.interval), 1)
}

// Interval returns the configured minimum interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Allow reports whether a submission at now would be accepted, without recording it.
func (g *Gate) Allow(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lim.TokensAt(now) >= 1
}

// RecordAttempt marks now as the last accepted submission.
func (g *Gate) RecordAttempt(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lim = g.newLimiter()
	g.lim.AllowN(now, 1)
}

// Admit checks and records under one lock so concurrent callers cannot both pass.
func (g *Gate) Admit(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lim.AllowN(now, 1)
}

var _ ports.CooldownGate = (*Gate)(nil)
