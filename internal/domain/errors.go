package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCommand is returned for blank input. Nothing is recorded.
	ErrEmptyCommand = errors.New("command is empty")
	// ErrThrottled is returned when a submission arrives inside the cooldown window.
	ErrThrottled = errors.New("please wait a moment before sending another command")
	// ErrNoTransportAvailable means neither the remote API nor the link can be used.
	ErrNoTransportAvailable = errors.New("not connected to gadget")
	// ErrInvalidTransition signals a status update on a command that is no longer pending.
	ErrInvalidTransition = errors.New("invalid command status transition")
	// ErrCommandNotFound is returned for unknown command ids.
	ErrCommandNotFound = errors.New("command not found")
	// ErrDispatchFailed is the generic failure reported to callers after a transport error.
	ErrDispatchFailed = errors.New("failed to send command")

	ErrNetwork = errors.New("network error")
	ErrLink    = errors.New("link error")
)

// NetworkError describes a failed remote API round trip.
type NetworkError struct {
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote api: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote api: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// LinkError describes a failed short-range link operation.
type LinkError struct {
	Op  string
	Err error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s: %v", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

func (e *LinkError) Is(target error) bool { return target == ErrLink }
