package interfaces

import (
	"context"

	"stream-processor/src/models"
)

// -----------------------------------------------------------------------------

// IConnectionClient defines the interface for upstream connections
type IConnectionClient interface {
	// Run connects and keeps the session alive, reconnecting on failure,
	// until ctx is cancelled. The raw data callback is passed at construction.
	Run(ctx context.Context) error

	// IsRunning reports whether Run is active
	IsRunning() bool

	// GetState returns the current connection state
	GetState() models.MConnectionState

	// GetReconnects returns how many reconnects were scheduled so far
	GetReconnects() uint64

	// GetName returns the client name
	GetName() string

	// GetType returns the transport type
	GetType() string

	// SendMessage sends a message on the live connection
	SendMessage([]byte) error
}
