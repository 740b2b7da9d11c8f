// Package workpool runs work items on a fixed set of long-lived workers fed
// by a bounded FIFO queue. A full queue pushes back on producers instead of
// growing, and the pool's lifecycle (Created, Running, Draining, Stopped) is
// explicit so shutdown can drain, cancel and report what was left behind.
package workpool

import (
	"context"
	"sync"
	"time"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

type Queue[T any] struct {
	name  string
	items chan T

	// sending is read-held by every Submit; Close takes it exclusively after
	// closing closed, so no send lands once Close returns.
	sending   sync.RWMutex
	closed    chan struct{}
	closeOnce sync.Once
}

func NewQueue[T any](name string, capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		name:   name,
		items:  make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

// Submit enqueues item, waiting at most timeout for a free slot. It fails
// with apperr.ErrQueueFull when no slot frees up in time and with
// apperr.ErrStopped once the queue is closed.
func (q *Queue[T]) Submit(ctx context.Context, item T, timeout time.Duration) error {
	q.sending.RLock()
	defer q.sending.RUnlock()

	select {
	case <-q.closed:
		return apperr.Errorf(apperr.ErrStopped, "workpool.Submit", q.name, "queue %s no longer accepts work", q.name)
	default:
	}

	select {
	case q.items <- item:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case q.items <- item:
		return nil
	case <-timer.C:
		return apperr.Errorf(apperr.ErrQueueFull, "workpool.Submit", q.name,
			"queue %s full (%d/%d) for %s", q.name, len(q.items), cap(q.items), timeout)
	case <-q.closed:
		return apperr.Errorf(apperr.ErrStopped, "workpool.Submit", q.name, "queue %s no longer accepts work", q.name)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for in-progress submits to settle.
// Items already queued stay queued.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.closed) })

	// Submits that saw the queue open finish before Close returns.
	q.sending.Lock()
	defer q.sending.Unlock()
}

func (q *Queue[T]) Closed() bool {
	select {
	case <-q.closed:
		return true
	default:
		return false
	}
}

func (q *Queue[T]) Len() int { return len(q.items) }

func (q *Queue[T]) Cap() int { return cap(q.items) }

// drain removes and returns everything still queued.
func (q *Queue[T]) drain() []T {
	var left []T
	for {
		select {
		case item := <-q.items:
			left = append(left, item)
		default:
			return left
		}
	}
}
