package pipeline

import (
	"sync"
	"time"
)

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusKitchenNotified Status = "KITCHEN_NOTIFIED"
	StatusConfirmed       Status = "CONFIRMED"
	StatusFailed          Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

type StepStatus string

const (
	StepStatusPending     StepStatus = "pending"
	StepStatusCompleted   StepStatus = "completed"
	StepStatusSkipped     StepStatus = "skipped"
	StepStatusFailed      StepStatus = "failed"
	StepStatusCompensated StepStatus = "compensated"
)

type Step struct {
	Name   string
	Status StepStatus
	Error  error
}

// Execution is the record of one pipeline run.
type Execution struct {
	ID        string
	Name      string
	SubjectID string
	CreatedAt time.Time

	mu        sync.RWMutex
	status    Status
	steps     []Step
	updatedAt time.Time
	finished  bool
	done      chan struct{}
}

func newExecution[S any](id, name, subjectID string, stages []Stage[S]) *Execution {
	now := time.Now()
	steps := make([]Step, len(stages))
	for i, s := range stages {
		steps[i] = Step{Name: s.Name, Status: StepStatusPending}
	}
	return &Execution{
		ID:        id,
		Name:      name,
		SubjectID: subjectID,
		CreatedAt: now,
		status:    StatusPending,
		steps:     steps,
		updatedAt: now,
		done:      make(chan struct{}),
	}
}

func (e *Execution) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Execution) Steps() []Step {
	e.mu.RLock()
	defer e.mu.RUnlock()
	steps := make([]Step, len(e.steps))
	copy(steps, e.steps)
	return steps
}

func (e *Execution) UpdatedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.updatedAt
}

// Done is closed once the execution is terminal.
func (e *Execution) Done() <-chan struct{} { return e.done }

func (e *Execution) setStep(i int, status StepStatus, err error) {
	e.mu.Lock()
	e.steps[i].Status = status
	e.steps[i].Error = err
	e.updatedAt = time.Now()
	e.mu.Unlock()
}

func (e *Execution) setStatus(status Status) {
	e.mu.Lock()
	e.status = status
	e.updatedAt = time.Now()
	e.mu.Unlock()
}

func (e *Execution) finish(status Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finished {
		return
	}
	e.finished = true
	e.status = status
	e.updatedAt = time.Now()
	close(e.done)
}
