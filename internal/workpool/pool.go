package workpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
)

type State int32

const (
	StateCreated State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handler processes one item. worker is the 1-based id of the worker running
// it. ctx is cancelled when shutdown gives up waiting for the queue to drain.
type Handler[T any] func(ctx context.Context, worker int, item T) error

type Config struct {
	Name         string
	Workers      int
	PollInterval time.Duration
}

const DefaultPollInterval = time.Second

type Stats struct {
	Processed int64
	Failed    int64
	Queued    int
	Capacity  int
	State     State
}

type Pool[T any] struct {
	cfg     Config
	queue   *Queue[T]
	handler Handler[T]
	log     *slog.Logger

	state  atomic.Int32
	cancel context.CancelFunc
	group  errgroup.Group

	processed atomic.Int64
	failed    atomic.Int64

	mu          sync.Mutex
	interrupted []T

	shutdownOnce sync.Once
	abandoned    []T
}

func NewPool[T any](queue *Queue[T], handler Handler[T], cfg Config) *Pool[T] {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Name == "" {
		cfg.Name = queue.name
	}
	return &Pool[T]{
		cfg:     cfg,
		queue:   queue,
		handler: handler,
		log:     logging.WithComponent("workpool").With("pool", cfg.Name),
	}
}

func (p *Pool[T]) State() State { return State(p.state.Load()) }

func (p *Pool[T]) Queue() *Queue[T] { return p.queue }

func (p *Pool[T]) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Queued:    p.queue.Len(),
		Capacity:  p.queue.Cap(),
		State:     p.State(),
	}
}

// Start launches the workers. It can be called once, on a Created pool.
func (p *Pool[T]) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return apperr.Errorf(apperr.ErrInvalidTransition, "workpool.Start", p.cfg.Name, "pool %s is %s", p.cfg.Name, p.State())
	}

	ctx, p.cancel = context.WithCancel(ctx)
	for i := 1; i <= p.cfg.Workers; i++ {
		worker := i
		p.group.Go(func() error {
			p.work(ctx, worker)
			return nil
		})
	}
	p.log.Info("pool started", "workers", p.cfg.Workers, "capacity", p.queue.Cap())
	return nil
}

// Submit enqueues item unless the pool is shutting down.
func (p *Pool[T]) Submit(ctx context.Context, item T, timeout time.Duration) error {
	if s := p.State(); s == StateDraining || s == StateStopped {
		return apperr.Errorf(apperr.ErrStopped, "workpool.Submit", p.cfg.Name, "pool %s is %s", p.cfg.Name, s)
	}
	return p.queue.Submit(ctx, item, timeout)
}

func (p *Pool[T]) work(ctx context.Context, worker int) {
	log := p.log.With("worker", worker)
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			log.Debug("worker cancelled")
			return
		}
		select {
		case item := <-p.queue.items:
			p.process(ctx, log, worker, item)
		case <-ticker.C:
			if p.State() != StateRunning && p.queue.Len() == 0 {
				log.Debug("worker drained")
				return
			}
		case <-ctx.Done():
		}
	}
}

func (p *Pool[T]) process(ctx context.Context, log *slog.Logger, worker int, item T) {
	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			err := apperr.Errorf(apperr.ErrWorkerFailed, "workpool.process", p.cfg.Name, "handler panicked: %v", r)
			log.Error("work item failed", "error", err.Error())
		}
	}()

	if err := p.handler(ctx, worker, item); err != nil {
		p.failed.Add(1)
		if ctx.Err() != nil {
			p.mu.Lock()
			p.interrupted = append(p.interrupted, item)
			p.mu.Unlock()
		}
		log.Error("work item failed", "error", apperr.Wrap(err, "workpool.process", p.cfg.Name).Error())
		return
	}
	p.processed.Add(1)
}

// Shutdown stops accepting work and lets the workers drain the queue for up
// to grace. After that in-flight handlers are cancelled. It returns the items
// that were never processed, including those whose handler was interrupted.
// Repeated calls return the same result.
func (p *Pool[T]) Shutdown(grace time.Duration) []T {
	p.shutdownOnce.Do(func() {
		p.queue.Close()

		if p.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
			p.abandoned = p.queue.drain()
			return
		}
		p.state.Store(int32(StateDraining))
		p.log.Info("pool draining", "queued", p.queue.Len(), "grace", grace)

		done := make(chan struct{})
		go func() {
			_ = p.group.Wait()
			close(done)
		}()

		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			p.log.Warn("grace period expired, cancelling in-flight work")
			p.cancel()
			<-done
		}
		p.cancel()

		p.mu.Lock()
		p.abandoned = append(p.interrupted, p.queue.drain()...)
		p.mu.Unlock()

		p.state.Store(int32(StateStopped))
		p.log.Info("pool stopped",
			"processed", p.processed.Load(),
			"failed", p.failed.Load(),
			"abandoned", len(p.abandoned))
	})
	return p.abandoned
}
