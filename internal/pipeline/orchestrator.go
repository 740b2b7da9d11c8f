// Package pipeline runs a sequence of stages on one subject off the caller's
// goroutine and hands back a Future for the result. Stages run on a bounded
// executor; when a stage fails, the compensations of the stages that already
// completed run in reverse order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
)

type Stage[S any] struct {
	Name string

	// Skip, when set and true for the current subject, marks the stage
	// skipped without running it.
	Skip func(subject S) bool

	Run func(ctx context.Context, subject S) (S, error)

	// Compensate undoes Run after a later stage failed.
	Compensate func(ctx context.Context, subject S) error

	// Marks is the execution status after the stage completes, if set. A
	// run that finishes every stage is CONFIRMED regardless.
	Marks Status
}

type Orchestrator[S any] struct {
	executor *semaphore.Weighted
	log      *slog.Logger
	retain   int

	mu         sync.RWMutex
	executions map[string]*Execution
	// finished holds ids of terminal executions, oldest first.
	finished []string
	running  sync.WaitGroup
}

const (
	DefaultConcurrency = 8
	DefaultRetention   = 1024
)

type Option func(*options)

type options struct {
	retain int
}

// WithRetention keeps at most n finished executions for lookup; older ones
// are dropped as new runs finish. Zero or less keeps every execution until
// Forget removes it.
func WithRetention(n int) Option {
	return func(o *options) { o.retain = n }
}

func NewOrchestrator[S any](concurrency int, opts ...Option) *Orchestrator[S] {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	o := options{retain: DefaultRetention}
	for _, opt := range opts {
		opt(&o)
	}
	return &Orchestrator[S]{
		executor:   semaphore.NewWeighted(int64(concurrency)),
		log:        logging.WithComponent("pipeline"),
		retain:     o.retain,
		executions: make(map[string]*Execution),
	}
}

// Run starts the stages on subject and returns at once. ctx governs the whole
// run; cancelling it fails the remaining stages.
func (o *Orchestrator[S]) Run(ctx context.Context, name, subjectID string, subject S, stages ...Stage[S]) (*Future[S], *Execution) {
	execution := newExecution(uuid.New().String(), name, subjectID, stages)
	future := newFuture[S]()

	o.mu.Lock()
	o.executions[execution.ID] = execution
	o.mu.Unlock()

	o.running.Add(1)
	go func() {
		defer o.running.Done()

		defer o.retire(execution.ID)

		if err := o.executor.Acquire(ctx, 1); err != nil {
			execution.finish(StatusFailed)
			future.resolve(subject, apperr.Wrap(err, "pipeline.Run", subjectID))
			return
		}
		defer o.executor.Release(1)

		result, err := o.execute(context.WithValue(ctx, stageKey{}, execution.ID), execution, subject, stages)
		future.resolve(result, err)
	}()

	return future, execution
}

func (o *Orchestrator[S]) execute(ctx context.Context, execution *Execution, subject S, stages []Stage[S]) (S, error) {
	log := o.log.With("pipeline", execution.Name, "execution_id", execution.ID, "subject", execution.SubjectID)

	var completed []int
	for i, stage := range stages {
		if stage.Skip != nil && stage.Skip(subject) {
			execution.setStep(i, StepStatusSkipped, nil)
			continue
		}

		if err := ctx.Err(); err != nil {
			return subject, o.fail(ctx, log, execution, stages, completed, i, subject, err)
		}

		next, err := runStage(ctx, stage, subject)
		if err != nil {
			return subject, o.fail(ctx, log, execution, stages, completed, i, subject, err)
		}
		subject = next
		completed = append(completed, i)
		execution.setStep(i, StepStatusCompleted, nil)
		if stage.Marks != "" {
			execution.setStatus(stage.Marks)
		}
	}

	execution.finish(StatusConfirmed)
	log.Debug("pipeline completed")
	return subject, nil
}

func runStage[S any](ctx context.Context, stage Stage[S], subject S) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = subject
			err = apperr.Errorf(apperr.ErrWorkerFailed, "pipeline."+stage.Name, "", "stage panicked: %v", r)
		}
	}()
	return stage.Run(ctx, subject)
}

func (o *Orchestrator[S]) fail(ctx context.Context, log *slog.Logger, execution *Execution, stages []Stage[S], completed []int, failed int, subject S, err error) error {
	execution.setStep(failed, StepStatusFailed, err)
	log.Warn("pipeline stage failed", "stage", stages[failed].Name, "error", err.Error())

	compCtx := context.WithoutCancel(ctx)
	for i := len(completed) - 1; i >= 0; i-- {
		stage := stages[completed[i]]
		if stage.Compensate == nil {
			continue
		}
		if cerr := stage.Compensate(compCtx, subject); cerr != nil {
			log.Error("compensation failed", "stage", stage.Name, "error", cerr.Error())
			continue
		}
		execution.setStep(completed[i], StepStatusCompensated, nil)
	}

	execution.finish(StatusFailed)
	return apperr.Wrap(err, "pipeline."+stages[failed].Name, execution.SubjectID)
}

func (o *Orchestrator[S]) Execution(id string) (*Execution, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	execution, exists := o.executions[id]
	if !exists {
		return nil, apperr.Errorf(apperr.ErrNotFound, "pipeline.Execution", id, "pipeline execution not found: %s", id)
	}
	return execution, nil
}

// Executions lists every execution, oldest first.
func (o *Orchestrator[S]) Executions() []*Execution {
	o.mu.RLock()
	executions := make([]*Execution, 0, len(o.executions))
	for _, e := range o.executions {
		executions = append(executions, e)
	}
	o.mu.RUnlock()

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.Before(executions[j].CreatedAt)
	})
	return executions
}

// WaitForCompletion blocks until the execution reaches a terminal status.
func (o *Orchestrator[S]) WaitForCompletion(ctx context.Context, id string) (*Execution, error) {
	execution, err := o.Execution(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-execution.Done():
		return execution, nil
	case <-ctx.Done():
		return execution, fmt.Errorf("pipeline %s did not complete: status=%s: %w", id, execution.Status(), ctx.Err())
	}
}

// Wait blocks until every started run has finished or ctx ends.
func (o *Orchestrator[S]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retire records a finished execution and drops the oldest ones beyond the
// retention limit.
func (o *Orchestrator[S]) retire(id string) {
	if o.retain <= 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.executions[id]; !exists {
		return
	}
	o.finished = append(o.finished, id)
	for len(o.finished) > o.retain {
		delete(o.executions, o.finished[0])
		o.finished = o.finished[1:]
	}
}

// Forget drops terminal executions older than age and returns how many were
// removed.
func (o *Orchestrator[S]) Forget(age time.Duration) int {
	cutoff := time.Now().Add(-age)
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for id, e := range o.executions {
		if e.Status().Terminal() && e.UpdatedAt().Before(cutoff) {
			delete(o.executions, id)
			removed++
		}
	}
	return removed
}
