// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the dispatch core and the
// adapters that talk to the outside world: the command database, the HTTP
// relay, the short-range link and the push broker. The application layer
// depends only on these interfaces, so every adapter can be replaced by a stub
// in tests.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., CommandStore, RemoteTransport)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/gadget-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.gadget/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// CommandStore is the append-only, status-mutable log of issued commands.
type CommandStore interface {
	Enqueue(ctx context.Context, text string) (domain.Command, error)
	NextPending(ctx context.Context) (domain.Command, bool, error)
	LatestPending(ctx context.Context) (domain.Command, bool, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status, response string, transport domain.Transport) (domain.Command, error)
	Get(ctx context.Context, id int64) (domain.Command, error)
	List(ctx context.Context, limit int) ([]domain.Command, error)
	SubscribeAll(ctx context.Context) (<-chan []domain.Command, error)
}

// CommandRepository adds maintenance operations used by the CLI.
type CommandRepository interface {
	CommandStore
	CountPending(ctx context.Context) (int, error)
	ExportJSON(ctx context.Context, dest string) error
	Path() string
	Close() error
}

// ResponseCache maps normalized command text to the last known response.
type ResponseCache interface {
	Get(key string) (string, bool)
	Put(key, value string)
}

// CacheRepository exposes inspection and clearing for the CLI.
type CacheRepository interface {
	ResponseCache
	Entries() []domain.CacheEntry
	Len() int
	Purge()
}

// CooldownGate rate-limits how often a new command may be submitted.
type CooldownGate interface {
	Allow(now time.Time) bool
	RecordAttempt(now time.Time)
	// Admit checks and records in one step.
	Admit(now time.Time) bool
}

// RemoteTransport delivers a command to the cloud relay and returns its reply.
type RemoteTransport interface {
	Send(ctx context.Context, command string) (string, error)
}

// LinkTransport is a byte-stream connection to a nearby gadget.
type LinkTransport interface {
	IsConnected() bool
	Write(ctx context.Context, payload []byte) error
}

// PushHandler receives push channel events.
type PushHandler func(context.Context, domain.PushEvent)

// PushChannel is a long-lived subscription to gadget-initiated messages.
// Run blocks until ctx is done; connection loss is recovered internally.
type PushChannel interface {
	Run(ctx context.Context, handler PushHandler) error
	Connected() bool
}

// ConnectivityProbe reports which transports are currently viable.
type ConnectivityProbe interface {
	State(ctx context.Context) domain.ConnectivityState
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
