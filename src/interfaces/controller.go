package interfaces

import (
	"context"

	"stream-processor/src/models"
)

// -----------------------------------------------------------------------------

// IStreamController is the read/control contract exposed to the gRPC and REST planes.
type IStreamController interface {
	// GetStatus returns the runtime status of the pipeline
	GetStatus() *models.MStreamStatus

	// GetProcessedResults returns the most recent results, oldest first (all when limit <= 0)
	GetProcessedResults(limit int) []models.MProcessedResult

	// FlushNow runs one batch-processing pass regardless of the threshold
	FlushNow(ctx context.Context) *models.MProcessedResult

	// Resubscribe sends the subscription messages again on the live connection
	Resubscribe() error
}
