package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a Command.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is one of the three known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransition allows only pending -> success and pending -> failed.
func (s Status) CanTransition(to Status) bool {
	return s == StatusPending && to.Terminal()
}

// Transition returns the target status or ErrInvalidTransition.
func (s Status) Transition(to Status) (Status, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}

// ParseStatus converts a persisted value back into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown command status %q", raw)
	}
	return s, nil
}

// Transport names the channel that resolved a command.
type Transport string

const (
	TransportNone   Transport = ""
	TransportCache  Transport = "cache"
	TransportRemote Transport = "remote"
	TransportLink   Transport = "link"
	TransportPush   Transport = "push"
)

// Command is one row of the audit log of issued commands.
type Command struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Status    Status    `json:"status"`
	Response  string    `json:"response,omitempty"`
	Transport Transport `json:"transport,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CacheEntry is a cached gadget response addressed by normalized command text.
type CacheEntry struct {
	Key       string    `json:"key"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitResult is what a caller sees once a submission resolves.
type SubmitResult struct {
	Command   Command
	Response  string
	FromCache bool
	Transport Transport
	Err       error
}

// Succeeded reports whether the command ended in StatusSuccess.
func (r SubmitResult) Succeeded() bool {
	return r.Command.Status == StatusSuccess
}

// CacheKey folds case and whitespace so "Lights  ON" and "lights on" share a
// response cache entry.
func CacheKey(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
