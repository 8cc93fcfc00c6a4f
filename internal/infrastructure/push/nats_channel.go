// Package push connects to the message broker the gadget publishes to and
// turns its traffic into domain.PushEvents.
package push

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/ports"
)

const (
	reconnectWait   = 500 * time.Millisecond
	consumerBackoff = 2 * time.Second
)

// NATSChannel implements ports.PushChannel on top of a NATS connection.
// Core subscriptions are used unless a durable JetStream consumer is configured.
type NATSChannel struct {
	settings domain.PushSettings
	logger   ports.Logger
	clientID string

	mu sync.Mutex
	nc *nats.Conn
}

// NewNATSChannel prepares a channel with a freshly generated client identifier.
func NewNATSChannel(settings domain.PushSettings, logger ports.Logger) *NATSChannel {
	return &NATSChannel{
		settings: settings,
		logger:   logger,
		clientID: clientID(settings.ClientPrefix),
	}
}

func clientID(prefix string) string {
	if prefix == "" {
		prefix = domain.DefaultClientPrefix
	}
	return prefix + "-" + uuid.NewString()
}

// ClientID identifies this connection in broker monitoring.
func (c *NATSChannel) ClientID() string {
	return c.clientID
}

// Connected implements ports.PushChannel.
func (c *NATSChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nc != nil && c.nc.IsConnected()
}

// Run connects, subscribes and delivers events to handler until ctx is done.
// The connection retries forever; only configuration errors are returned.
func (c *NATSChannel) Run(ctx context.Context, handler ports.PushHandler) error {
	emit := func(ev domain.PushEvent) {
		ev.At = time.Now()
		handler(ctx, ev)
	}

	nc, err := nats.Connect(c.settings.URL,
		nats.Name(c.clientID),
		nats.PingInterval(5*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(*nats.Conn) {
			emit(domain.PushEvent{Kind: domain.PushConnected})
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			emit(domain.PushEvent{Kind: domain.PushConnected})
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			emit(domain.PushEvent{Kind: domain.PushDisconnected, Err: err})
		}),
	)
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", c.settings.URL, err)
	}
	c.mu.Lock()
	c.nc = nc
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.nc = nil
		c.mu.Unlock()
		nc.Close()
	}()

	deliver := func(subject string, data []byte) {
		emit(messageEvent(subject, data))
	}

	if c.settings.Durable != "" {
		return c.runDurable(ctx, nc, deliver)
	}

	sub, err := nc.Subscribe(c.settings.Topic, func(msg *nats.Msg) {
		deliver(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", c.settings.Topic, err)
	}
	c.logger.Info("push channel subscribed", map[string]interface{}{
		"topic":     c.settings.Topic,
		"client_id": c.clientID,
	})
	<-ctx.Done()
	_ = sub.Unsubscribe()
	return nil
}

// runDurable consumes through a JetStream durable consumer with explicit acks.
// Consumer creation needs a live connection, so it is retried until it succeeds.
func (c *NATSChannel) runDurable(ctx context.Context, nc *nats.Conn, deliver func(string, []byte)) error {
	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("nats jetstream init: %w", err)
	}
	stream := streamNameFromSubject(c.settings.Topic)
	cfg := jetstream.ConsumerConfig{
		Durable:       c.settings.Durable,
		FilterSubject: c.settings.Topic,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	}

	var consumeCtx jetstream.ConsumeContext
	for consumeCtx == nil {
		consumer, err := js.CreateOrUpdateConsumer(ctx, stream, cfg)
		if err == nil {
			consumeCtx, err = consumer.Consume(func(msg jetstream.Msg) {
				deliver(msg.Subject(), msg.Data())
				_ = msg.Ack()
			})
		}
		if err != nil {
			c.logger.Warn("push consumer unavailable, retrying", map[string]interface{}{
				"stream":  stream,
				"durable": c.settings.Durable,
				"error":   err.Error(),
			})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(consumerBackoff):
			}
		}
	}
	c.logger.Info("push channel consuming", map[string]interface{}{
		"stream":  stream,
		"durable": c.settings.Durable,
	})
	<-ctx.Done()
	consumeCtx.Stop()
	return nil
}

// Ping opens a short-lived connection and round-trips to the broker.
func (c *NATSChannel) Ping(ctx context.Context) error {
	opts := []nats.Option{nats.Name(c.clientID + "-ping")}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}
	nc, err := nats.Connect(c.settings.URL, opts...)
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", c.settings.URL, err)
	}
	defer nc.Close()
	if err := nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	return nil
}

func messageEvent(subject string, data []byte) domain.PushEvent {
	return domain.PushEvent{
		Kind:    domain.PushMessage,
		Topic:   subject,
		Payload: string(data),
	}
}

// streamNameFromSubject returns the JetStream stream for a subject: its first token.
// "gadget.responses" -> "gadget"
func streamNameFromSubject(subject string) string {
	for i, c := range subject {
		if c == '.' {
			return subject[:i]
		}
	}
	return subject
}

var _ ports.PushChannel = (*NATSChannel)(nil)
