package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

func TestQueue_SubmitBackpressure(t *testing.T) {
	q := NewQueue[int]("test", 2)
	ctx := context.Background()

	require.NoError(t, q.Submit(ctx, 1, 10*time.Millisecond))
	require.NoError(t, q.Submit(ctx, 2, 10*time.Millisecond))

	start := time.Now()
	err := q.Submit(ctx, 3, 30*time.Millisecond)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, apperr.ErrQueueFull)
	assert.Equal(t, apperr.CategoryContention, apperr.CategoryOf(err))
	assert.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Cap())
}

func TestQueue_SubmitAfterClose(t *testing.T) {
	q := NewQueue[string]("test", 1)
	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.ErrorIs(t, q.Submit(context.Background(), "x", time.Millisecond), apperr.ErrStopped)
}

func TestQueue_DequeuesInSubmissionOrder(t *testing.T) {
	q := NewQueue[int]("test", 10)
	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		require.NoError(t, q.Submit(ctx, i, time.Millisecond))
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, q.drain())
}

func TestPool_SingleWorkerProcessesInOrder(t *testing.T) {
	q := NewQueue[int]("orders", 20)
	var mu sync.Mutex
	var order []int

	pool := NewPool(q, func(ctx context.Context, worker int, item int) error {
		mu.Lock()
		order = append(order, item)
		mu.Unlock()
		return nil
	}, Config{Workers: 1, PollInterval: 5 * time.Millisecond})

	for i := 0; i < 20; i++ {
		require.NoError(t, q.Submit(context.Background(), i, time.Millisecond))
	}
	require.NoError(t, pool.Start(context.Background()))
	require.Empty(t, pool.Shutdown(time.Second))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 20)
	for i, item := range order {
		assert.Equal(t, i, item)
	}
}

func TestPool_SubmitRacingShutdownNeverLosesWork(t *testing.T) {
	for round := 0; round < 50; round++ {
		q := NewQueue[int]("orders", 100)
		pool := NewPool(q, func(ctx context.Context, worker int, item int) error {
			return nil
		}, Config{Workers: 2, PollInterval: time.Millisecond})
		require.NoError(t, pool.Start(context.Background()))

		var accepted atomic.Int64
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					if pool.Submit(context.Background(), i, time.Millisecond) == nil {
						accepted.Add(1)
					}
				}
			}()
		}

		left := pool.Shutdown(time.Second)
		wg.Wait()

		assert.Equal(t, accepted.Load(), pool.Stats().Processed+int64(len(left)), "round %d", round)
	}
}

func TestPool_ProcessesEveryItem(t *testing.T) {
	q := NewQueue[int]("orders", 50)
	var mu sync.Mutex
	seen := make(map[int]int)

	pool := NewPool(q, func(ctx context.Context, worker int, item int) error {
		mu.Lock()
		seen[item]++
		mu.Unlock()
		return nil
	}, Config{Workers: 3, PollInterval: 5 * time.Millisecond})

	require.NoError(t, pool.Start(context.Background()))
	assert.Equal(t, StateRunning, pool.State())

	for i := 0; i < 20; i++ {
		require.NoError(t, pool.Submit(context.Background(), i, time.Second))
	}

	left := pool.Shutdown(time.Second)
	assert.Empty(t, left)
	assert.Equal(t, StateStopped, pool.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 20)
	for item, n := range seen {
		assert.Equalf(t, 1, n, "item %d processed %d times", item, n)
	}
	assert.Equal(t, int64(20), pool.Stats().Processed)
}

func TestPool_FailuresAreIsolated(t *testing.T) {
	q := NewQueue[int]("orders", 10)
	var ok atomic.Int32

	pool := NewPool(q, func(ctx context.Context, worker int, item int) error {
		switch item {
		case 2:
			return errors.New("burnt")
		case 3:
			panic("oven on fire")
		}
		ok.Add(1)
		return nil
	}, Config{Workers: 1, PollInterval: 5 * time.Millisecond})
	require.NoError(t, pool.Start(context.Background()))

	for i := 1; i <= 5; i++ {
		require.NoError(t, pool.Submit(context.Background(), i, time.Second))
	}
	pool.Shutdown(time.Second)

	assert.Equal(t, int32(3), ok.Load())
	stats := pool.Stats()
	assert.Equal(t, int64(3), stats.Processed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestPool_ShutdownCancelsAfterGrace(t *testing.T) {
	q := NewQueue[int]("orders", 10)
	started := make(chan struct{}, 1)

	pool := NewPool(q, func(ctx context.Context, worker int, item int) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}, Config{Workers: 1, PollInterval: 5 * time.Millisecond})
	require.NoError(t, pool.Start(context.Background()))

	for i := 1; i <= 3; i++ {
		require.NoError(t, pool.Submit(context.Background(), i, time.Second))
	}
	<-started

	start := time.Now()
	left := pool.Shutdown(50 * time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ElementsMatch(t, []int{1, 2, 3}, left)
	assert.Equal(t, StateStopped, pool.State())
	assert.ErrorIs(t, pool.Submit(context.Background(), 4, time.Millisecond), apperr.ErrStopped)
	assert.Equal(t, left, pool.Shutdown(time.Second))
}

func TestPool_LifecycleTransitions(t *testing.T) {
	q := NewQueue[int]("orders", 4)
	pool := NewPool(q, func(context.Context, int, int) error { return nil }, Config{})
	assert.Equal(t, StateCreated, pool.State())

	require.NoError(t, q.Submit(context.Background(), 1, time.Millisecond))
	left := pool.Shutdown(time.Second)
	assert.Equal(t, []int{1}, left)
	assert.Equal(t, StateStopped, pool.State())

	err := pool.Start(context.Background())
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "DRAINING", StateDraining.String())
	assert.Equal(t, "State(9)", State(9).String())
}
