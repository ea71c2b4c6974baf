package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"stream-processor/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tick(ts float64) models.MTick {
	return models.MTick{Timestamp: ts, Price: ts}
}

func timestamps(ticks []models.MTick) []float64 {
	out := make([]float64, len(ticks))
	for i, t := range ticks {
		out[i] = t.Timestamp
	}
	return out
}

func TestQueueFIFO(t *testing.T) {
	q := NewIngestionQueue(10, models.OverflowBlock)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := q.Push(ctx, tick(float64(i)))
		require.NoError(t, err)
	}

	assert.Equal(t, []float64{1, 2, 3}, timestamps(q.PopUpTo(3)))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []float64{4, 5}, timestamps(q.PopUpTo(10)))
	assert.Nil(t, q.PopUpTo(10))
	assert.Nil(t, q.PopUpTo(0))
}

func TestQueueDropOldest(t *testing.T) {
	q := NewIngestionQueue(3, models.OverflowDropOldest)
	ctx := context.Background()

	var drops int
	for i := 1; i <= 5; i++ {
		dropped, err := q.Push(ctx, tick(float64(i)))
		require.NoError(t, err)
		if dropped {
			drops++
		}
	}
	assert.Equal(t, 2, drops)
	assert.Equal(t, []float64{3, 4, 5}, timestamps(q.PopUpTo(10)))
}

func TestQueueWrapsAroundRing(t *testing.T) {
	q := NewIngestionQueue(4, models.OverflowBlock)
	ctx := context.Background()
	push := func(from, to int) {
		for i := from; i <= to; i++ {
			_, err := q.Push(ctx, tick(float64(i)))
			require.NoError(t, err)
		}
	}

	push(1, 3)
	assert.Equal(t, []float64{1, 2}, timestamps(q.PopUpTo(2)))
	push(4, 6)
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, []float64{3, 4, 5, 6}, timestamps(q.PopUpTo(10)))

	push(7, 9)
	assert.Equal(t, []float64{7}, timestamps(q.PopUpTo(1)))
	assert.Equal(t, []float64{8, 9}, timestamps(q.PopUpTo(10)))
	assert.Zero(t, q.Len())
}

func TestQueueDropOldestAcrossWrap(t *testing.T) {
	q := NewIngestionQueue(4, models.OverflowDropOldest)
	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		_, err := q.Push(ctx, tick(float64(i)))
		require.NoError(t, err)
	}
	assert.Equal(t, []float64{7, 8, 9}, timestamps(q.PopUpTo(3)))

	for i := 11; i <= 14; i++ {
		_, err := q.Push(ctx, tick(float64(i)))
		require.NoError(t, err)
	}
	assert.Equal(t, 4, q.Len())
	assert.Equal(t, []float64{11, 12, 13, 14}, timestamps(q.PopUpTo(10)))
}

func BenchmarkQueueDropOldestFull(b *testing.B) {
	q := NewIngestionQueue(100000, models.OverflowDropOldest)
	ctx := context.Background()
	for i := 0; i < 100000; i++ {
		_, _ = q.Push(ctx, tick(float64(i)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = q.Push(ctx, tick(float64(i)))
	}
}

func TestQueueReject(t *testing.T) {
	q := NewIngestionQueue(2, models.OverflowReject)
	ctx := context.Background()

	_, err := q.Push(ctx, tick(1))
	require.NoError(t, err)
	_, err = q.Push(ctx, tick(2))
	require.NoError(t, err)
	_, err = q.Push(ctx, tick(3))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, []float64{1, 2}, timestamps(q.PopUpTo(10)))
}

func TestQueueBlockWaitsForSpace(t *testing.T) {
	q := NewIngestionQueue(1, models.OverflowBlock)
	ctx := context.Background()
	_, err := q.Push(ctx, tick(1))
	require.NoError(t, err)

	pushed := make(chan error, 1)
	go func() {
		_, err := q.Push(ctx, tick(2))
		pushed <- err
	}()

	select {
	case <-pushed:
		t.Fatal("push on a full blocking queue returned early")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, []float64{1}, timestamps(q.PopUpTo(1)))
	select {
	case err := <-pushed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked push was not released")
	}
	assert.Equal(t, []float64{2}, timestamps(q.PopUpTo(1)))
}

func TestQueueBlockHonoursCancellation(t *testing.T) {
	q := NewIngestionQueue(1, models.OverflowBlock)
	_, err := q.Push(context.Background(), tick(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = q.Push(ctx, tick(2))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, q.Len())
}

func TestQueueCloseReleasesBlockedProducers(t *testing.T) {
	q := NewIngestionQueue(1, models.OverflowBlock)
	_, err := q.Push(context.Background(), tick(1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Push(context.Background(), tick(2))
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.Close()
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, ErrQueueClosed)
	}
}

func TestQueueConcurrentProducersKeepEveryTick(t *testing.T) {
	q := NewIngestionQueue(64, models.OverflowBlock)
	ctx := context.Background()

	const producers, perProducer = 4, 500
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_, err := q.Push(ctx, tick(1))
				assert.NoError(t, err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	total := 0
	for {
		total += len(q.PopUpTo(16))
		select {
		case <-done:
			total += len(q.PopUpTo(q.Capacity()))
			assert.Equal(t, producers*perProducer, total)
			return
		default:
		}
	}
}

func TestQueueDefaults(t *testing.T) {
	q := NewIngestionQueue(0, "bogus")
	assert.Equal(t, 1, q.Capacity())
	assert.Equal(t, models.OverflowBlock, q.Policy())
}
