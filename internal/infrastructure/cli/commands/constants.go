package commands

import (
	"time"

	"github.com/doeshing/gadget-go/internal/domain"
)

// CLI-specific constants
const (
	// DefaultEditorCommand is the default editor command
	DefaultEditorCommand = "vi"
	// DefaultWaitTimeout bounds how long send waits for a reply
	DefaultWaitTimeout = 30 * time.Second
	// DefaultStatsTopN is how many frequent commands history stats lists
	DefaultStatsTopN = 5
	// ReplPrompt is printed before each interactive line
	ReplPrompt = "gadget> "
)

// Re-exported domain defaults used as flag defaults.
const (
	DefaultHistoryLimit = domain.DefaultHistoryLimit
	TimestampFormat     = domain.TimestampFormat
)

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrCommandStoreUnavailable  = "command store unavailable"
	ErrDispatcherUnavailable    = "dispatcher unavailable"
	ErrPushDisabled             = "push channel disabled; set push.enabled in the config"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No commands recorded yet."
	MsgNothingPending           = "Nothing pending."
	MsgNoCachedResponses        = "No cached responses."
	MsgResetCancelled           = "Reset cancelled."
)
