// Package apperr classifies the failures produced by the concurrency layer and
// the services built on it.
//
// Every error carries a Category that tells the caller how to react: domain
// violations are surfaced as-is, contention and acquisition failures are safe to
// retry with backoff, worker failures are isolated to one work item, and reentry
// failures are programming errors.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies errors by their nature and appropriate handling strategy.
type Category int

const (
	// CategorySystem is the default for unclassified infrastructure failures
	// such as a storage backend that cannot be reached.
	CategorySystem Category = iota

	// CategoryDomain is raised by a record's own rules, e.g. consuming more
	// stock than is available. Never retried automatically.
	CategoryDomain

	// CategoryContention means a lock or queue slot was not obtained before the
	// deadline. Always recoverable by the caller.
	CategoryContention

	// CategoryAcquisition means a multi-lock batch could not be completed. No
	// lock of the batch is held when it is reported.
	CategoryAcquisition

	// CategoryWorker is a processing failure isolated to one work item.
	CategoryWorker

	// CategoryReentry is a writer trying to re-enter a lock it already holds.
	CategoryReentry

	CategoryNotFound
	CategoryForbidden

	// CategoryShutdown is returned by components that stopped accepting work.
	CategoryShutdown
)

func (c Category) String() string {
	switch c {
	case CategoryDomain:
		return "domain"
	case CategoryContention:
		return "contention"
	case CategoryAcquisition:
		return "acquisition"
	case CategoryWorker:
		return "worker"
	case CategoryReentry:
		return "reentry"
	case CategoryNotFound:
		return "not_found"
	case CategoryForbidden:
		return "forbidden"
	case CategoryShutdown:
		return "shutdown"
	default:
		return "system"
	}
}

// Error is a classified error with optional operation context.
type Error struct {
	Category Category

	// Code is a stable identifier such as "INSUFFICIENT_STOCK".
	Code string

	Message string

	// Op names the operation that failed, e.g. "guard.Write" or "inventory.ReduceStock".
	Op string

	// Resource identifies the record, table or queue involved, if any.
	Resource string

	Cause error

	// kind is the sentinel this error was built from when Cause is another
	// error.
	kind *Error
}

// New creates an Error without a cause.
func New(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Wrap attaches operation context to err. Wrapping an *Error keeps its
// category and code so that errors.Is against the original sentinel still
// matches through the new layer.
func Wrap(err error, op, resource string) error {
	if err == nil {
		return nil
	}
	wrapped := &Error{
		Category: CategoryOf(err),
		Op:       op,
		Resource: resource,
		Cause:    err,
	}
	var ae *Error
	if errors.As(err, &ae) {
		wrapped.Code = ae.Code
		wrapped.Message = ae.Message
	} else {
		wrapped.Code = "INTERNAL"
		wrapped.Message = err.Error()
	}
	return wrapped
}

// Errorf builds a classified error whose cause is the given sentinel, so the
// result matches the sentinel with errors.Is while carrying a richer message.
func Errorf(sentinel *Error, op, resource, format string, args ...any) error {
	return &Error{
		Category: sentinel.Category,
		Code:     sentinel.Code,
		Message:  fmt.Sprintf(format, args...),
		Op:       op,
		Resource: resource,
		Cause:    sentinel,
	}
}

// WrapAs builds an error that matches sentinel with errors.Is and keeps cause
// in its chain, e.g. a retry failure that still exposes the last attempt.
func WrapAs(sentinel *Error, cause error, op, resource, format string, args ...any) error {
	return &Error{
		Category: sentinel.Category,
		Code:     sentinel.Code,
		Message:  fmt.Sprintf(format, args...),
		Op:       op,
		Resource: resource,
		Cause:    cause,
		kind:     sentinel,
	}
}

// Error follows the pattern:
// [CODE] message (op: Op, resource: Resource) caused by: cause
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Op != "" {
		fmt.Fprintf(&b, " (op: %s", e.Op)
		if e.Resource != "" {
			fmt.Fprintf(&b, ", resource: %s", e.Resource)
		}
		b.WriteString(")")
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		var ae *Error
		if !errors.As(e.Cause, &ae) || ae.Code != e.Code {
			fmt.Fprintf(&b, " caused by: %v", e.Cause)
		}
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the same sentinel. Two *Error values match when
// they are the same pointer; codes alone never match so that distinct call
// sites stay distinguishable.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && (t == e || (e.kind != nil && t == e.kind))
}

// CategoryOf returns the category of the first *Error in err's chain, or
// CategorySystem when there is none.
func CategoryOf(err error) Category {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Category
	}
	return CategorySystem
}

// Retryable reports whether the caller may retry the failed operation after a
// backoff without changing its input.
func Retryable(err error) bool {
	switch CategoryOf(err) {
	case CategoryContention, CategoryAcquisition:
		return true
	default:
		return false
	}
}
