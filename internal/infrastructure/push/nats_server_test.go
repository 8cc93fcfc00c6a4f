package push

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natstest "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/pkg/logger"
)

func runBroker(t *testing.T, port int, jetStream bool) (*server.Server, server.Options) {
	t.Helper()
	opts := natstest.DefaultTestOptions
	opts.Port = port
	opts.JetStream = jetStream
	if jetStream {
		opts.StoreDir = t.TempDir()
	}
	srv := natstest.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv, opts
}

// recorder collects events delivered by NATSChannel.Run.
type recorder struct {
	mu     sync.Mutex
	events []domain.PushEvent
}

func (r *recorder) handle(_ context.Context, ev domain.PushEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(kind domain.PushEventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) payloads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Kind == domain.PushMessage {
			out = append(out, ev.Payload)
		}
	}
	return out
}

func (r *recorder) kinds() []domain.PushEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PushEventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func startChannel(t *testing.T, settings domain.PushSettings) (*NATSChannel, *recorder) {
	t.Helper()
	ch := NewNATSChannel(settings, logger.Nop())
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx, rec.handle) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	require.Eventually(t, ch.Connected, 5*time.Second, 20*time.Millisecond)
	return ch, rec
}

// publishUntilSeen republishes payload until the channel reports it; the
// subscription may not be registered with the broker the moment Run connects.
func publishUntilSeen(t *testing.T, rec *recorder, publish func() error, payload string) {
	t.Helper()
	require.Eventually(t, func() bool {
		if err := publish(); err != nil {
			return false
		}
		for _, p := range rec.payloads() {
			if p == payload {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRunDeliversCoreMessages(t *testing.T) {
	srv, _ := runBroker(t, -1, false)
	_, rec := startChannel(t, domain.PushSettings{URL: srv.ClientURL(), Topic: "gadget.responses"})

	pub, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer pub.Close()

	publishUntilSeen(t, rec, func() error {
		return pub.Publish("gadget.responses", []byte("lights are on"))
	}, "lights are on")
}

func TestRunConsumesDurableStreamWithAcks(t *testing.T) {
	srv, _ := runBroker(t, -1, true)
	ctx := context.Background()

	pub, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer pub.Close()
	js, err := jetstream.New(pub)
	require.NoError(t, err)
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{Name: "gadget", Subjects: []string{"gadget.>"}})
	require.NoError(t, err)

	_, rec := startChannel(t, domain.PushSettings{
		URL:     srv.ClientURL(),
		Topic:   "gadget.responses",
		Durable: "listener",
	})

	publishUntilSeen(t, rec, func() error {
		_, err := js.Publish(ctx, "gadget.responses", []byte("temperature raised"))
		return err
	}, "temperature raised")

	consumer, err := js.Consumer(ctx, "gadget", "listener")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		info, err := consumer.Info(ctx)
		return err == nil && info.NumAckPending == 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRunReconnectsAfterBrokerRestart(t *testing.T) {
	srv, opts := runBroker(t, -1, false)
	port := srv.Addr().(*net.TCPAddr).Port
	ch, rec := startChannel(t, domain.PushSettings{URL: srv.ClientURL(), Topic: "gadget.responses"})

	srv.Shutdown()
	srv.WaitForShutdown()
	require.Eventually(t, func() bool {
		return rec.count(domain.PushDisconnected) >= 1 && !ch.Connected()
	}, 5*time.Second, 20*time.Millisecond)

	opts.Port = port
	restarted := natstest.RunServer(&opts)
	t.Cleanup(restarted.Shutdown)
	require.Eventually(t, ch.Connected, 10*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		kinds := rec.kinds()
		return len(kinds) > 0 && kinds[len(kinds)-1] == domain.PushConnected
	}, 5*time.Second, 20*time.Millisecond)

	pub, err := nats.Connect(restarted.ClientURL())
	require.NoError(t, err)
	defer pub.Close()
	publishUntilSeen(t, rec, func() error {
		return pub.Publish("gadget.responses", []byte("back online"))
	}, "back online")
}
