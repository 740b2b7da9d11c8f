package guard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

// Repository is where a guarded record is loaded from and persisted to.
type Repository[T any] interface {
	FindByID(ctx context.Context, id string) (T, error)
	Save(ctx context.Context, rec T) error
}

const DefaultTimeout = 5 * time.Second

type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout bounds how long Write waits for the writer slot when the
// caller's context has no earlier deadline. Zero waits on the context alone.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func buildOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type writerKey struct{}

type Guard[T any] struct {
	id      string
	repo    Repository[T]
	timeout time.Duration

	version  atomic.Uint64
	snapshot atomic.Pointer[T]

	// commit is held exclusively only while a snapshot is published; the
	// read fallback takes it shared.
	commit sync.RWMutex
	writer *semaphore.Weighted
}

// New binds a guard to the record id whose current committed state is
// initial. Most callers obtain guards from a Registry instead.
func New[T any](id string, initial T, repo Repository[T], opts ...Option) *Guard[T] {
	o := buildOptions(opts)
	g := &Guard[T]{
		id:      id,
		repo:    repo,
		timeout: o.timeout,
		writer:  semaphore.NewWeighted(1),
	}
	g.snapshot.Store(&initial)
	return g
}

func (g *Guard[T]) ID() string { return g.id }

// Version returns the stamp. It is even between writes and grows by two per
// committed write.
func (g *Guard[T]) Version() uint64 { return g.version.Load() }

// Snapshot returns the last committed state.
func (g *Guard[T]) Snapshot() T {
	var rec T
	_ = g.Read(context.Background(), func(r T) error {
		rec = r
		return nil
	})
	return rec
}

func (g *Guard[T]) Read(ctx context.Context, fn func(rec T) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stamp := g.version.Load()
	if stamp%2 == 0 {
		err := fn(*g.snapshot.Load())
		if g.version.Load() == stamp {
			return err
		}
	}

	g.commit.RLock()
	defer g.commit.RUnlock()
	return fn(*g.snapshot.Load())
}

func (g *Guard[T]) Write(ctx context.Context, fn func(ctx context.Context, rec *T) error) error {
	if owner, _ := ctx.Value(writerKey{}).(*Guard[T]); owner == g {
		return apperr.Errorf(apperr.ErrReentrantWrite, "guard.Write", g.id, "write on %s re-entered by its own writer", g.id)
	}

	acquireCtx := ctx
	if g.timeout > 0 {
		if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > g.timeout {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
	}
	if err := g.writer.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil && ctx.Err() != context.DeadlineExceeded {
			return err
		}
		return apperr.Errorf(apperr.ErrLockTimeout, "guard.Write", g.id, "writer slot for %s not acquired: %v", g.id, err)
	}
	defer g.writer.Release(1)

	rec, err := g.repo.FindByID(ctx, g.id)
	if err != nil {
		return err
	}

	if err := fn(context.WithValue(ctx, writerKey{}, g), &rec); err != nil {
		return err
	}

	if err := g.repo.Save(ctx, rec); err != nil {
		return apperr.Wrap(err, "guard.Write", g.id)
	}
	g.publish(rec)
	return nil
}

func (g *Guard[T]) publish(rec T) {
	g.commit.Lock()
	g.version.Add(1)
	g.snapshot.Store(&rec)
	g.version.Add(1)
	g.commit.Unlock()
}
