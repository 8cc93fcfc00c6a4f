// Package reconcile applies gadget-initiated push messages to the command log.
package reconcile

import (
	"context"
	"errors"
	"strings"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/ports"
)

// Reconciler resolves the newest pending command with each push payload.
// Payloads that arrive while nothing is pending are forwarded to
// OnNotification instead.
type Reconciler struct {
	Store          ports.CommandStore
	Cache          ports.ResponseCache
	Logger         ports.Logger
	OnNotification func(ctx context.Context, event domain.PushEvent)
	OnResolved     func(ctx context.Context, cmd domain.Command)
}

// Run drives channel until ctx ends.
func (r *Reconciler) Run(ctx context.Context, channel ports.PushChannel) error {
	return channel.Run(ctx, r.Handle)
}

// Handle implements ports.PushHandler.
func (r *Reconciler) Handle(ctx context.Context, event domain.PushEvent) {
	switch event.Kind {
	case domain.PushConnected:
		r.Logger.Info("push channel connected", nil)
	case domain.PushDisconnected:
		fields := map[string]interface{}{}
		if event.Err != nil {
			fields["error"] = event.Err.Error()
		}
		r.Logger.Warn("push channel disconnected", fields)
	case domain.PushMessage:
		r.resolve(ctx, event)
	}
}

func (r *Reconciler) resolve(ctx context.Context, event domain.PushEvent) {
	pending, ok, err := r.Store.LatestPending(ctx)
	if err != nil {
		r.Logger.Error("lookup pending command", err, map[string]interface{}{"topic": event.Topic})
		return
	}
	if !ok {
		r.Logger.Debug("push message with nothing pending", map[string]interface{}{"topic": event.Topic})
		if r.OnNotification != nil {
			r.OnNotification(ctx, event)
		}
		return
	}

	payload := strings.TrimSpace(event.Payload)
	updated, err := r.Store.UpdateStatus(ctx, pending.ID, domain.StatusSuccess, payload, domain.TransportPush)
	if errors.Is(err, domain.ErrInvalidTransition) {
		r.Logger.Warn("command resolved before push arrived", map[string]interface{}{"id": pending.ID})
		return
	}
	if err != nil {
		r.Logger.Error("resolve command from push", err, map[string]interface{}{"id": pending.ID})
		return
	}
	if r.Cache != nil {
		r.Cache.Put(domain.CacheKey(pending.Text), payload)
	}
	r.Logger.Info("command resolved by push", map[string]interface{}{"id": pending.ID})
	if r.OnResolved != nil {
		r.OnResolved(ctx, updated)
	}
}
