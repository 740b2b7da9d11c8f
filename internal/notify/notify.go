// Package notify tells the front of house that an order changed.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
)

type Notifier interface {
	OrderUpdated(ctx context.Context, order model.Order) error
}

// LogNotifier writes a log line per update.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logging.WithComponent("notify")}
}

func (n *LogNotifier) OrderUpdated(ctx context.Context, order model.Order) error {
	n.log.Info("order updated", "order_id", order.ID, "table", order.TableNumber, "status", string(order.Status))
	return nil
}

// Fanout delivers to every notifier and returns the first error.
type Fanout []Notifier

func (f Fanout) OrderUpdated(ctx context.Context, order model.Order) error {
	var first error
	for _, n := range f {
		if err := n.OrderUpdated(ctx, order); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder keeps every update in memory.
type Recorder struct {
	mu     sync.Mutex
	orders []model.Order
}

func (r *Recorder) OrderUpdated(ctx context.Context, order model.Order) error {
	r.mu.Lock()
	r.orders = append(r.orders, order)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Updates() []model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Order, len(r.orders))
	copy(out, r.orders)
	return out
}
