// Package service composes the concurrency primitives into the restaurant's
// back-office operations. Every mutating call checks permissions before it
// touches a lock, and records an audit entry once the lock is released.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/audit"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
)

// System is the actor recorded for changes nobody on staff asked for, such as
// the kitchen marking an order ready.
var System = permission.Staff{ID: "system", Name: "System"}

// Env carries what every service shares.
type Env struct {
	Policy *permission.Policy
	Audit  audit.Sink
}

func (e Env) withDefaults() Env {
	if e.Policy == nil {
		e.Policy = permission.DefaultPolicy()
	}
	if e.Audit == nil {
		e.Audit = audit.NewMemory()
	}
	return e
}

type recorder struct {
	sink audit.Sink
	log  *slog.Logger
}

func newRecorder(sink audit.Sink, component string) recorder {
	return recorder{sink: sink, log: logging.WithComponent(component)}
}

// record appends an audit entry. The mutation it describes is already
// committed, so a failing sink is logged and not returned.
func (r recorder) record(ctx context.Context, actor permission.Staff, action, entityType, entityID, format string, args ...any) {
	entry := audit.Entry{
		UserID:     actor.ID,
		Role:       string(actor.Role),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    fmt.Sprintf(format, args...),
	}
	if _, err := r.sink.Append(context.WithoutCancel(ctx), entry); err != nil {
		r.log.Error("failed to append audit entry",
			"action", action,
			"entity_id", entityID,
			"error", err,
		)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
