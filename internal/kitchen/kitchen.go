// Package kitchen prepares orders on a fixed crew of cooks fed by a bounded
// ticket queue.
package kitchen

import (
	"context"
	"log/slog"
	"time"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/workpool"
)

// Ticket is what a cook receives: a snapshot of the order taken at
// submission time.
type Ticket struct {
	OrderID     string
	TableNumber int
	Items       []string
	SubmittedAt time.Time
}

func TicketFor(order model.Order) Ticket {
	items := make([]string, len(order.Items))
	for i, item := range order.Items {
		items[i] = item.Name
	}
	return Ticket{
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		Items:       items,
		SubmittedAt: time.Now(),
	}
}

type CookTimer interface {
	CookTime(t Ticket) time.Duration
}

// PerItem cooks every item of a ticket for the same duration.
type PerItem time.Duration

func (d PerItem) CookTime(t Ticket) time.Duration {
	return time.Duration(d) * time.Duration(len(t.Items))
}

// Orders receives the status changes the kitchen makes.
type Orders interface {
	AdvanceStatus(ctx context.Context, orderID string, status model.OrderStatus) error
}

type Config struct {
	Workers       int
	QueueCapacity int
	SubmitTimeout time.Duration
	PollInterval  time.Duration
	CookTimer     CookTimer
}

func DefaultConfig() Config {
	return Config{
		Workers:       4,
		QueueCapacity: 100,
		SubmitTimeout: 5 * time.Second,
		PollInterval:  time.Second,
		CookTimer:     PerItem(500 * time.Millisecond),
	}
}

type Kitchen struct {
	cfg    Config
	orders Orders
	pool   *workpool.Pool[Ticket]
	log    *slog.Logger
}

func New(cfg Config, orders Orders) *Kitchen {
	if cfg.CookTimer == nil {
		cfg.CookTimer = DefaultConfig().CookTimer
	}
	k := &Kitchen{
		cfg:    cfg,
		orders: orders,
		log:    logging.WithComponent("kitchen"),
	}
	queue := workpool.NewQueue[Ticket]("kitchen", cfg.QueueCapacity)
	k.pool = workpool.NewPool(queue, k.cook, workpool.Config{
		Name:         "kitchen",
		Workers:      cfg.Workers,
		PollInterval: cfg.PollInterval,
	})
	return k
}

func (k *Kitchen) Start(ctx context.Context) error {
	return k.pool.Start(ctx)
}

// Submit queues the order for preparation, waiting up to the configured
// submit timeout for room in the queue.
func (k *Kitchen) Submit(ctx context.Context, order model.Order) error {
	if err := k.pool.Submit(ctx, TicketFor(order), k.cfg.SubmitTimeout); err != nil {
		return err
	}
	k.log.Info("order submitted to kitchen queue", "order_id", order.ID, "queued", k.pool.Queue().Len())
	return nil
}

func (k *Kitchen) QueueSize() int { return k.pool.Queue().Len() }

func (k *Kitchen) Stats() workpool.Stats { return k.pool.Stats() }

func (k *Kitchen) State() workpool.State { return k.pool.State() }

// Shutdown stops taking tickets and returns those that were never cooked.
func (k *Kitchen) Shutdown(grace time.Duration) []Ticket {
	left := k.pool.Shutdown(grace)
	for _, t := range left {
		k.log.Warn("ticket abandoned at shutdown", "order_id", t.OrderID)
	}
	return left
}

func (k *Kitchen) cook(ctx context.Context, worker int, t Ticket) error {
	log := logging.WithWorker("kitchen", worker).With("order_id", t.OrderID)
	log.Info("processing order", "items", len(t.Items), "waited", time.Since(t.SubmittedAt))

	if err := k.orders.AdvanceStatus(ctx, t.OrderID, model.OrderStatusInPreparation); err != nil {
		return err
	}

	timer := time.NewTimer(k.cfg.CookTimer.CookTime(t))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		log.Warn("interrupted while processing order")
		return apperr.Wrap(ctx.Err(), "kitchen.cook", t.OrderID)
	}

	if err := k.orders.AdvanceStatus(ctx, t.OrderID, model.OrderStatusReady); err != nil {
		return err
	}
	log.Info("completed order")
	return nil
}
