package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

type stageKey struct{}

// InStage reports whether ctx belongs to a running pipeline stage.
func InStage(ctx context.Context) bool {
	return ctx.Value(stageKey{}) != nil
}

// Future is the eventual result of a pipeline run. It resolves exactly once.
type Future[T any] struct {
	done chan struct{}
	once sync.Once

	value T
	err   error
}

type Outcome[T any] struct {
	Value T
	Err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future resolves or ctx ends. Awaiting from inside a
// pipeline stage fails immediately with apperr.ErrAwaitInStage: the stage
// would hold an executor slot that the awaited run may need.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	var zero T
	if InStage(ctx) {
		return zero, apperr.Errorf(apperr.ErrAwaitInStage, "pipeline.Await", "", "future awaited from inside a pipeline stage")
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, apperr.Errorf(apperr.ErrAwaitTimeout, "pipeline.Await", "", "future not resolved before deadline")
		}
		return zero, ctx.Err()
	}
}

// Peek returns the outcome without blocking. ok is false while the future is
// unresolved.
func (f *Future[T]) Peek() (outcome Outcome[T], ok bool) {
	select {
	case <-f.done:
		return Outcome[T]{Value: f.value, Err: f.err}, true
	default:
		return Outcome[T]{}, false
	}
}
