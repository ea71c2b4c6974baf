package interfaces

import "stream-processor/src/models"

// -----------------------------------------------------------------------------

// IResultSink receives every processed result right after it is appended to the log.
type IResultSink interface {
	OnProcessedResult(result *models.MProcessedResult)
}

// -----------------------------------------------------------------------------

// IPublisher defines the interface for publishing processed results
type IPublisher interface {
	IResultSink

	// Connect establishes connection to the message broker
	Connect() error

	// Disconnect closes the connection to the message broker
	Disconnect() error

	// IsConnected returns the current connection status
	IsConnected() bool
}
