// Package multilock takes exclusive locks on several named resources at once
// without deadlocking.
//
// Every request is de-duplicated and sorted before the first lock is taken,
// so two goroutines that need the same resources always take them in the
// same order. Locks are released in reverse order on every exit path. The
// set of resources is fixed when the Coordinator is built.
//
// Each lock handle is a buffered channel of capacity one: sending takes the
// lock, receiving releases it. That makes waits composable with select, so
// context cancellation and per-lock timeouts need no extra machinery.
package multilock

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
)

type Coordinator[K cmp.Ordered] struct {
	handles map[K]chan struct{}
}

func New[K cmp.Ordered](keys ...K) *Coordinator[K] {
	c := &Coordinator[K]{handles: make(map[K]chan struct{}, len(keys))}
	for _, k := range keys {
		c.handles[k] = make(chan struct{}, 1)
	}
	return c
}

// NewRange builds a coordinator for the integer resources 1..n, e.g. table
// numbers.
func NewRange(n int) *Coordinator[int] {
	keys := make([]int, n)
	for i := range keys {
		keys[i] = i + 1
	}
	return New(keys...)
}

func (c *Coordinator[K]) Has(key K) bool {
	_, ok := c.handles[key]
	return ok
}

// Held reports whether key is currently locked. The answer may be stale by
// the time the caller reads it.
func (c *Coordinator[K]) Held(key K) bool {
	h, ok := c.handles[key]
	return ok && len(h) == 1
}

func (c *Coordinator[K]) order(op string, keys []K) ([]K, error) {
	ordered := slices.Clone(keys)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)
	for _, k := range ordered {
		if !c.Has(k) {
			return nil, apperr.Errorf(apperr.ErrUnknownResource, op, fmt.Sprint(k), "no lock handle for %v", k)
		}
	}
	return ordered, nil
}

func (c *Coordinator[K]) release(acquired []K) {
	for i := len(acquired) - 1; i >= 0; i-- {
		<-c.handles[acquired[i]]
	}
}

// WithLocks waits as long as it takes to lock every key, then runs fn. Only
// ctx cancellation aborts the wait.
func (c *Coordinator[K]) WithLocks(ctx context.Context, keys []K, fn func() error) error {
	ordered, err := c.order("multilock.WithLocks", keys)
	if err != nil {
		return err
	}

	acquired := make([]K, 0, len(ordered))
	defer func() { c.release(acquired) }()

	for _, k := range ordered {
		select {
		case c.handles[k] <- struct{}{}:
			acquired = append(acquired, k)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fn()
}

// TryWithLocks gives each lock at most perLockTimeout. If any lock is not
// obtained in time, the locks taken so far are released and fn does not run.
func (c *Coordinator[K]) TryWithLocks(ctx context.Context, keys []K, perLockTimeout time.Duration, fn func() error) error {
	ordered, err := c.order("multilock.TryWithLocks", keys)
	if err != nil {
		return err
	}

	acquired := make([]K, 0, len(ordered))
	defer func() { c.release(acquired) }()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for _, k := range ordered {
		// A free handle is taken without consulting the timer, so a zero
		// timeout still succeeds on uncontended locks.
		select {
		case c.handles[k] <- struct{}{}:
			acquired = append(acquired, k)
			continue
		default:
		}
		if perLockTimeout <= 0 {
			return apperr.Errorf(apperr.ErrAcquireTimeout, "multilock.TryWithLocks", fmt.Sprint(k),
				"lock %v is held", k)
		}

		if timer == nil {
			timer = time.NewTimer(perLockTimeout)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(perLockTimeout)
		}

		select {
		case c.handles[k] <- struct{}{}:
			acquired = append(acquired, k)
		case <-timer.C:
			return apperr.Errorf(apperr.ErrAcquireTimeout, "multilock.TryWithLocks", fmt.Sprint(k),
				"lock %v not acquired within %s", k, perLockTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fn()
}

type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PerLockTimeout time.Duration
}

// DefaultRetryPolicy waits 100ms, 200ms, 400ms and 800ms between five
// attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		PerLockTimeout: 100 * time.Millisecond,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = max(d.MaxBackoff, p.InitialBackoff)
	}
	if p.PerLockTimeout <= 0 {
		p.PerLockTimeout = d.PerLockTimeout
	}
	return p
}

// Backoff returns the wait after the given failed attempt, counting from 1.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	shift := min(attempt-1, 20)
	return min(p.InitialBackoff*time.Duration(1<<uint(shift)), p.MaxBackoff)
}

// RetryWithLocks runs TryWithLocks until it succeeds or the policy's attempts
// are used up. Only acquisition failures are retried; an error from fn is
// returned as is.
func (c *Coordinator[K]) RetryWithLocks(ctx context.Context, keys []K, policy RetryPolicy, fn func() error) error {
	policy = policy.withDefaults()
	log := logging.WithComponent("multilock")

	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		ran := false
		err := c.TryWithLocks(ctx, keys, policy.PerLockTimeout, func() error {
			ran = true
			return fn()
		})
		if err == nil || ran || !errors.Is(err, apperr.ErrAcquireTimeout) {
			if err == nil && attempt > 1 {
				log.Info("locks acquired after retry", "keys", fmt.Sprint(keys), "attempts", attempt)
			}
			return err
		}
		lastErr = err

		if attempt == policy.Attempts {
			break
		}
		wait := policy.Backoff(attempt)
		log.Warn("lock acquisition failed, backing off", "keys", fmt.Sprint(keys), "attempt", attempt, "wait", wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	log.Error("lock acquisition retries exhausted", "keys", fmt.Sprint(keys), "attempts", policy.Attempts)
	return apperr.WrapAs(apperr.ErrRetriesExhausted, lastErr, "multilock.RetryWithLocks", fmt.Sprint(keys),
		"locks %v not acquired after %d attempts", keys, policy.Attempts)
}
