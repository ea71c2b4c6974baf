package processor

import (
	"context"
	"time"

	"stream-processor/src/logger"
)

// -----------------------------------------------------------------------------

// PeriodicFlusher triggers batch processing on a fixed cadence, bounding how long
// buffered ticks wait when throughput is low.
//
// With flushPartial false (the default) a tick only triggers processing when the queue
// holds at least a full batch, the same test the enqueue path uses. With flushPartial
// true any non-empty queue is processed.
type PeriodicFlusher struct {
	Name   string
	Logger *logger.Logger

	processor    *BatchProcessor
	interval     time.Duration
	flushPartial bool
}

// -----------------------------------------------------------------------------

// NewPeriodicFlusher creates a flusher driving processor every interval.
func NewPeriodicFlusher(name string, processor *BatchProcessor, interval time.Duration, flushPartial bool, logger *logger.Logger) *PeriodicFlusher {
	return &PeriodicFlusher{
		Name:         name,
		Logger:       logger,
		processor:    processor,
		interval:     interval,
		flushPartial: flushPartial,
	}
}

// -----------------------------------------------------------------------------

// Run loops until ctx is done.
func (f *PeriodicFlusher) Run(ctx context.Context) {
	f.Logger.Info("%s : periodic flush every %s (partial batches: %t)", f.Name, f.interval, f.flushPartial)
	defer f.Logger.Info("%s : periodic flush stopped", f.Name)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f.shouldFlush() {
				f.processor.ProcessBatch(ctx)
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (f *PeriodicFlusher) shouldFlush() bool {
	size := f.processor.QueueLen()
	if f.flushPartial {
		return size > 0
	}
	return size >= f.processor.BatchSize()
}
