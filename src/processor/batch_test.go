package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stream-processor/src/logger"
	"stream-processor/src/metrics"
	"stream-processor/src/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processorConfig(batchSize, window int) models.MProcessorConfig {
	return models.MProcessorConfig{
		BatchSize:          batchSize,
		Window:             window,
		ProcessingInterval: 10 * time.Millisecond,
		QueueCapacity:      10 * batchSize,
		OverflowPolicy:     models.OverflowBlock,
		MaxResults:         100,
	}
}

func newProcessor(t *testing.T, cfg models.MProcessorConfig, opts ...Option) (*BatchProcessor, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewTestMetrics()
	q := NewIngestionQueue(cfg.QueueCapacity, cfg.OverflowPolicy)
	return NewBatchProcessor("trades", cfg, q, logger.NewNopLogger(), m, opts...), m
}

func enqueueRange(t *testing.T, bp *BatchProcessor, from, to int) {
	t.Helper()
	for i := from; i <= to; i++ {
		require.NoError(t, bp.Enqueue(context.Background(), tick(float64(i))))
	}
}

type recordingSink struct {
	mu      sync.Mutex
	results []*models.MProcessedResult
}

func (s *recordingSink) OnProcessedResult(r *models.MProcessedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

// -----------------------------------------------------------------------------

func TestProcessBatchComputesMovingAverage(t *testing.T) {
	sink := &recordingSink{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bp, m := newProcessor(t, processorConfig(60, 50), WithSinks(sink), WithClock(func() time.Time { return fixed }))
	enqueueRange(t, bp, 1, 60)

	result := bp.ProcessBatch(context.Background())
	require.NotNil(t, result)
	require.Len(t, result.Series, 10)
	assert.InDelta(t, 25.5, result.Series[0], 1e-9)
	assert.InDelta(t, 34.5, result.Series[9], 1e-9)
	assert.Equal(t, 60, result.BatchSize)
	assert.Equal(t, 50, result.Window)
	assert.Equal(t, 1.0, result.FirstTimestamp)
	assert.Equal(t, 60.0, result.LastTimestamp)
	assert.Equal(t, fixed, result.ComputedAt)
	assert.NotEmpty(t, result.ID)

	assert.Equal(t, 0, bp.QueueLen())
	assert.Equal(t, 1, bp.ResultCount())
	assert.Len(t, sink.results, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesProcessed))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.TicksEnqueued))
}

func TestProcessBatchTakesAtMostBatchSize(t *testing.T) {
	bp, _ := newProcessor(t, processorConfig(10, 3))
	enqueueRange(t, bp, 1, 25)

	first := bp.ProcessBatch(context.Background())
	require.NotNil(t, first)
	assert.Equal(t, 10, first.BatchSize)
	assert.Equal(t, 1.0, first.FirstTimestamp)
	assert.Equal(t, 15, bp.QueueLen())

	second := bp.ProcessBatch(context.Background())
	require.NotNil(t, second)
	assert.Equal(t, 11.0, second.FirstTimestamp)
	assert.Equal(t, 20.0, second.LastTimestamp)
}

func TestProcessBatchShortBatch(t *testing.T) {
	bp, _ := newProcessor(t, processorConfig(100, 50))
	enqueueRange(t, bp, 1, 30)

	result := bp.ProcessBatch(context.Background())
	require.NotNil(t, result)
	assert.Empty(t, result.Series)
	assert.Equal(t, 30, result.BatchSize)
	assert.Equal(t, 1, bp.ResultCount())
}

func TestProcessBatchEmptyQueueIsNoop(t *testing.T) {
	bp, m := newProcessor(t, processorConfig(10, 3))
	for i := 0; i < 3; i++ {
		assert.Nil(t, bp.ProcessBatch(context.Background()))
	}
	assert.Zero(t, bp.ResultCount())
	assert.Zero(t, testutil.ToFloat64(m.BatchesProcessed))
}

func TestProcessBatchFailureDiscardsBatch(t *testing.T) {
	failing := func([]float64) ([]float64, error) { return nil, errors.New("bad reducer") }
	bp, m := newProcessor(t, processorConfig(5, 2), WithReducer(failing))
	enqueueRange(t, bp, 1, 7)

	assert.Nil(t, bp.ProcessBatch(context.Background()))
	assert.Equal(t, 2, bp.QueueLen())
	assert.Zero(t, bp.ResultCount())
	assert.Equal(t, uint64(5), bp.Dropped())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchFailures))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TicksDropped.WithLabelValues(metrics.DropReasonBatch)))
}

func TestProcessBatchRecoversPanics(t *testing.T) {
	var calls atomic.Int32
	reducer := func(prices []float64) ([]float64, error) {
		if calls.Add(1) == 1 {
			panic("reducer exploded")
		}
		return SimpleMovingAverage(prices, 2)
	}
	bp, _ := newProcessor(t, processorConfig(4, 2), WithReducer(reducer))
	enqueueRange(t, bp, 1, 8)

	assert.Nil(t, bp.ProcessBatch(context.Background()))
	result := bp.ProcessBatch(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, []float64{5.5, 6.5}, result.Series)
}

func TestProcessBatchRunsOneAtATime(t *testing.T) {
	var active, peak atomic.Int32
	reducer := func(prices []float64) ([]float64, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return prices, nil
	}
	bp, _ := newProcessor(t, processorConfig(10, 1), WithReducer(reducer))
	enqueueRange(t, bp, 1, 80)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bp.ProcessBatch(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, 8, bp.ResultCount())

	// batches never interleave: each covers 10 consecutive timestamps
	seen := map[float64]bool{}
	for _, r := range bp.Results(0) {
		assert.Equal(t, r.FirstTimestamp+9, r.LastTimestamp)
		assert.False(t, seen[r.FirstTimestamp])
		seen[r.FirstTimestamp] = true
	}
}

func TestProcessBatchCancelledWhileWaitingForLock(t *testing.T) {
	release := make(chan struct{})
	reducer := func(prices []float64) ([]float64, error) {
		<-release
		return prices, nil
	}
	bp, _ := newProcessor(t, processorConfig(5, 1), WithReducer(reducer))
	enqueueRange(t, bp, 1, 10)

	go bp.ProcessBatch(context.Background())
	require.Eventually(t, func() bool { return bp.QueueLen() == 5 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Nil(t, bp.ProcessBatch(ctx))
	assert.Equal(t, 5, bp.QueueLen())

	close(release)
	require.Eventually(t, func() bool { return bp.ResultCount() == 1 }, time.Second, time.Millisecond)
}

func TestResultsLogCapAndOrder(t *testing.T) {
	cfg := processorConfig(2, 1)
	cfg.MaxResults = 3
	bp, _ := newProcessor(t, cfg)
	enqueueRange(t, bp, 1, 10)

	for i := 0; i < 5; i++ {
		require.NotNil(t, bp.ProcessBatch(context.Background()))
	}
	assert.Equal(t, 3, bp.ResultCount())

	all := bp.Results(0)
	require.Len(t, all, 3)
	assert.Equal(t, []float64{5, 7, 9}, []float64{all[0].FirstTimestamp, all[1].FirstTimestamp, all[2].FirstTimestamp})

	last := bp.Results(1)
	require.Len(t, last, 1)
	assert.Equal(t, 9.0, last[0].FirstTimestamp)

	// readers get copies
	last[0].Series[0] = -1
	assert.NotEqual(t, -1.0, bp.Results(1)[0].Series[0])
}

func TestEnqueueOverflowAccounting(t *testing.T) {
	cfg := processorConfig(2, 1)
	cfg.QueueCapacity = 2
	cfg.OverflowPolicy = models.OverflowReject
	bp, m := newProcessor(t, cfg)

	enqueueRange(t, bp, 1, 2)
	err := bp.Enqueue(context.Background(), tick(3))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, uint64(1), bp.Dropped())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksDropped.WithLabelValues(metrics.DropReasonRejected)))

	cfg.OverflowPolicy = models.OverflowDropOldest
	bp, m = newProcessor(t, cfg)
	enqueueRange(t, bp, 1, 3)
	assert.Equal(t, uint64(1), bp.Dropped())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksDropped.WithLabelValues(metrics.DropReasonOverflow)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueDepth))
}

// -----------------------------------------------------------------------------

func TestWorkerProcessesWhenThresholdReached(t *testing.T) {
	bp, _ := newProcessor(t, processorConfig(10, 5))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bp.RunWorker(ctx)
		close(done)
	}()

	enqueueRange(t, bp, 1, 9)
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, bp.ResultCount())

	enqueueRange(t, bp, 10, 35)
	require.Eventually(t, func() bool { return bp.ResultCount() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 5, bp.QueueLen())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestSurplusTriggersOverOneBatchAreNoops(t *testing.T) {
	bp, m := newProcessor(t, processorConfig(10, 5))
	enqueueRange(t, bp, 1, 10)

	results := make(chan *models.MProcessedResult, 4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- bp.ProcessBatch(context.Background())
		}()
	}
	wg.Wait()
	close(results)

	var produced int
	for r := range results {
		if r != nil {
			produced++
			assert.Equal(t, 10, r.BatchSize)
		}
	}
	assert.Equal(t, 1, produced)
	assert.Equal(t, 1, bp.ResultCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesProcessed))
}

func TestWorkerAndFlusherRaceOverOneBatch(t *testing.T) {
	for round := 0; round < 20; round++ {
		bp, _ := newProcessor(t, processorConfig(10, 5))
		f := NewPeriodicFlusher("trades", bp, time.Millisecond, false, logger.NewNopLogger())

		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			bp.RunWorker(ctx)
		}()
		go func() {
			defer wg.Done()
			f.Run(ctx)
		}()

		enqueueRange(t, bp, 1, 10)
		require.Eventually(t, func() bool { return bp.ResultCount() == 1 }, time.Second, time.Millisecond)
		// give any surplus trigger time to fire
		time.Sleep(10 * time.Millisecond)

		cancel()
		wg.Wait()
		assert.Equal(t, 1, bp.ResultCount(), "round %d", round)
		assert.Zero(t, bp.QueueLen(), "round %d", round)
	}
}
