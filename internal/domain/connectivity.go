package domain

import "time"

// ConnectivityState is a point-in-time view of which channels are usable.
type ConnectivityState struct {
	InternetReachable bool
	LinkConnected     bool
	PushConnected     bool
}

// PushEventKind enumerates what the push channel can report.
type PushEventKind string

const (
	PushConnected    PushEventKind = "connected"
	PushDisconnected PushEventKind = "disconnected"
	PushMessage      PushEventKind = "message"
)

// PushEvent is emitted by a push channel. Topic and Payload are set for messages,
// Err may be set for disconnects.
type PushEvent struct {
	Kind    PushEventKind
	Topic   string
	Payload string
	Err     error
	At      time.Time
}
