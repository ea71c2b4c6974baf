package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"stream-processor/src/interfaces"
	"stream-processor/src/logger"
	"stream-processor/src/metrics"
	"stream-processor/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------

// Option customizes a BatchProcessor.
type Option func(*BatchProcessor)

// WithReducer replaces the moving-average reducer.
func WithReducer(reducer Reducer) Option {
	return func(bp *BatchProcessor) {
		bp.reduce = reducer
	}
}

// WithSinks registers sinks notified after each appended result.
func WithSinks(sinks ...interfaces.IResultSink) Option {
	return func(bp *BatchProcessor) {
		bp.sinks = append(bp.sinks, sinks...)
	}
}

// WithClock overrides time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(bp *BatchProcessor) {
		bp.now = now
	}
}

// -----------------------------------------------------------------------------

// BatchProcessor drains the ingestion queue into batches and reduces them into
// processed results. At most one drain-and-compute runs at any instant.
type BatchProcessor struct {
	Name    string
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	queue     *IngestionQueue
	batchSize int
	window    int
	reduce    Reducer
	sinks     []interfaces.IResultSink
	now       func() time.Time

	// transform is the transformation lock, a one-slot semaphore so waiting honours ctx
	transform chan struct{}

	// wake coalesces threshold crossings into at most one pending worker run
	wake chan struct{}

	resultsMu  sync.RWMutex
	results    []models.MProcessedResult
	maxResults int

	dropped atomic.Uint64
}

// -----------------------------------------------------------------------------

// NewBatchProcessor creates a processor bound to queue.
func NewBatchProcessor(name string, cfg models.MProcessorConfig, queue *IngestionQueue, logger *logger.Logger, m *metrics.Metrics, opts ...Option) *BatchProcessor {
	bp := &BatchProcessor{
		Name:       name,
		Logger:     logger,
		Metrics:    m,
		queue:      queue,
		batchSize:  cfg.BatchSize,
		window:     cfg.Window,
		reduce:     MovingAverageReducer(cfg.Window),
		now:        time.Now,
		transform:  make(chan struct{}, 1),
		wake:       make(chan struct{}, 1),
		maxResults: cfg.MaxResults,
	}
	for _, opt := range opts {
		opt(bp)
	}
	return bp
}

// -----------------------------------------------------------------------------

// Enqueue appends a tick to the queue and, when the batch threshold is reached,
// signals the batch worker. It never waits for processing to happen.
func (bp *BatchProcessor) Enqueue(ctx context.Context, tick models.MTick) error {
	dropped, err := bp.queue.Push(ctx, tick)
	if err != nil {
		if errors.Is(err, ErrQueueFull) {
			bp.dropped.Add(1)
			bp.Metrics.TicksDropped.WithLabelValues(metrics.DropReasonRejected).Inc()
		}
		return fmt.Errorf("%s : enqueue failed: %w", bp.Name, err)
	}
	if dropped {
		bp.dropped.Add(1)
		bp.Metrics.TicksDropped.WithLabelValues(metrics.DropReasonOverflow).Inc()
	}
	bp.Metrics.TicksEnqueued.Inc()

	size := bp.queue.Len()
	bp.Metrics.QueueDepth.Set(float64(size))
	if size >= bp.batchSize {
		bp.signal()
	}
	return nil
}

// -----------------------------------------------------------------------------

// ProcessBatch drains up to batch size ticks and reduces them into a processed result.
// It returns nil when the queue was empty, the batch failed, or ctx ended while waiting
// for the transformation lock. Errors never escape: they are logged and the batch is discarded.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context) *models.MProcessedResult {
	select {
	case bp.transform <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	defer func() { <-bp.transform }()

	batch := bp.queue.PopUpTo(bp.batchSize)
	bp.Metrics.QueueDepth.Set(float64(bp.queue.Len()))
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	result, err := bp.transformBatch(batch)
	if err != nil {
		bp.Metrics.BatchFailures.Inc()
		bp.dropped.Add(uint64(len(batch)))
		bp.Metrics.TicksDropped.WithLabelValues(metrics.DropReasonBatch).Add(float64(len(batch)))
		bp.Logger.Error("%s : discarding batch of %d ticks (first ts %.0f, last ts %.0f): %v",
			bp.Name, len(batch), batch[0].Timestamp, batch[len(batch)-1].Timestamp, err)
		return nil
	}
	bp.Metrics.BatchDuration.Observe(time.Since(start).Seconds())
	bp.Metrics.BatchesProcessed.Inc()

	bp.appendResult(*result)
	bp.Logger.Info("%s : processed batch of %d ticks, moving average length %d", bp.Name, len(batch), len(result.Series))

	for _, sink := range bp.sinks {
		sink.OnProcessedResult(result)
	}
	return result
}

// -----------------------------------------------------------------------------

// RunWorker is the persistent batch worker. Each wake signal triggers processing
// until the queue drops below the threshold. It returns when ctx is done.
func (bp *BatchProcessor) RunWorker(ctx context.Context) {
	bp.Logger.Info("%s : batch worker started (batch size %d, window %d)", bp.Name, bp.batchSize, bp.window)
	defer bp.Logger.Info("%s : batch worker stopped", bp.Name)

	for {
		select {
		case <-ctx.Done():
			return
		case <-bp.wake:
			for bp.queue.Len() >= bp.batchSize && ctx.Err() == nil {
				bp.ProcessBatch(ctx)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Results returns copies of the most recent limit results, oldest first.
// A limit <= 0 returns the whole log.
func (bp *BatchProcessor) Results(limit int) []models.MProcessedResult {
	bp.resultsMu.RLock()
	defer bp.resultsMu.RUnlock()

	start := 0
	if limit > 0 && limit < len(bp.results) {
		start = len(bp.results) - limit
	}
	out := make([]models.MProcessedResult, 0, len(bp.results)-start)
	for _, r := range bp.results[start:] {
		out = append(out, r.Clone())
	}
	return out
}

// ResultCount returns the number of results currently held in the log.
func (bp *BatchProcessor) ResultCount() int {
	bp.resultsMu.RLock()
	defer bp.resultsMu.RUnlock()
	return len(bp.results)
}

// Dropped returns how many ticks were lost to overflow, rejection or failed batches.
func (bp *BatchProcessor) Dropped() uint64 {
	return bp.dropped.Load()
}

// QueueLen returns the number of buffered ticks.
func (bp *BatchProcessor) QueueLen() int {
	return bp.queue.Len()
}

// BatchSize returns the batch threshold.
func (bp *BatchProcessor) BatchSize() int {
	return bp.batchSize
}

// -----------------------------------------------------------------------------

// transformBatch runs the matrix conversion and reduction, turning panics into errors.
func (bp *BatchProcessor) transformBatch(batch []models.MTick) (result *models.MProcessedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic during batch transformation: %v", r)
		}
	}()

	matrix := ToMatrix(batch)
	prices, err := Column(matrix, models.ColumnPrice)
	if err != nil {
		return nil, fmt.Errorf("extract price column: %w", err)
	}

	series, err := bp.reduce(prices)
	if err != nil {
		return nil, fmt.Errorf("reduce prices: %w", err)
	}

	return &models.MProcessedResult{
		ID:             uuid.NewString(),
		Source:         bp.Name,
		Series:         series,
		Window:         bp.window,
		BatchSize:      len(batch),
		FirstTimestamp: batch[0].Timestamp,
		LastTimestamp:  batch[len(batch)-1].Timestamp,
		ComputedAt:     bp.now(),
	}, nil
}

// -----------------------------------------------------------------------------

func (bp *BatchProcessor) appendResult(result models.MProcessedResult) {
	bp.resultsMu.Lock()
	defer bp.resultsMu.Unlock()

	bp.results = append(bp.results, result.Clone())
	if bp.maxResults > 0 && len(bp.results) > bp.maxResults {
		evict := len(bp.results) - bp.maxResults
		clear(bp.results[:evict])
		bp.results = bp.results[evict:]
	}
}

// -----------------------------------------------------------------------------

func (bp *BatchProcessor) signal() {
	select {
	case bp.wake <- struct{}{}:
	default:
	}
}
