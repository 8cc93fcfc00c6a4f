package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Dispatch defaults
const (
	// DefaultCooldown is the minimum interval between accepted submissions
	DefaultCooldown = time.Second
	// DefaultTransportTimeout applies to each of connect, read and write
	DefaultTransportTimeout = 10 * time.Second
	// MaxResponseBytes caps how much of a remote response body is read
	MaxResponseBytes = 1 << 20
)

// Cache defaults
const (
	DefaultMaxCacheEntries = 100
	DefaultCacheTTL        = time.Hour
)

// Connectivity defaults
const (
	DefaultProbeTimeout = 2 * time.Second
	DefaultProbeTTL     = 5 * time.Second
)

// Link defaults
const (
	// SerialPortServiceUUID identifies the Bluetooth serial port profile
	SerialPortServiceUUID = "00001101-0000-1000-8000-00805F9B34FB"
	LinkModeRFCOMM        = "rfcomm"
	LinkModeDevice        = "device"
	FramingNone           = "none"
	FramingNewline        = "newline"
	FramingLength         = "length"
)

// Push defaults
const (
	DefaultPushURL      = "nats://127.0.0.1:4222"
	DefaultPushTopic    = "gadget.responses"
	DefaultClientPrefix = "gadget"
)

// History constants
const (
	// DefaultHistoryLimit is the default number of commands to display
	DefaultHistoryLimit = 20
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
