package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/guard"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/kitchen"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/notify"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/pipeline"
)

type OrderConfig struct {
	Kitchen             kitchen.Config
	PipelineConcurrency int

	// RetainExecutions caps how many finished placement runs stay available
	// through Pipeline().
	RetainExecutions int

	// Tables is the highest valid table number.
	Tables int
}

func DefaultOrderConfig() OrderConfig {
	return OrderConfig{
		Kitchen:             kitchen.DefaultConfig(),
		PipelineConcurrency: pipeline.DefaultConcurrency,
		RetainExecutions:    pipeline.DefaultRetention,
		Tables:              DefaultTableConfig().Tables,
	}
}

// OrderService places orders through an async pipeline and owns the kitchen
// that prepares them.
type OrderService struct {
	cfg      OrderConfig
	orders   *guard.Registry[model.Order]
	menu     *MenuService
	kitchen  *kitchen.Kitchen
	notifier notify.Notifier
	pipeline *pipeline.Orchestrator[model.Order]
	policy   *permission.Policy
	audit    recorder
}

// NewOrderService builds the service and its kitchen. menu, when set, is the
// source of truth for item price and availability at placement time.
func NewOrderService(cfg OrderConfig, repo guard.Repository[model.Order], menu *MenuService, notifier notify.Notifier, env Env, opts ...guard.Option) *OrderService {
	env = env.withDefaults()
	if notifier == nil {
		notifier = notify.NewLogNotifier()
	}
	if cfg.Tables <= 0 {
		cfg.Tables = DefaultTableConfig().Tables
	}
	if cfg.RetainExecutions <= 0 {
		cfg.RetainExecutions = pipeline.DefaultRetention
	}
	s := &OrderService{
		cfg:      cfg,
		orders:   guard.NewRegistry(repo, opts...),
		menu:     menu,
		notifier: notifier,
		pipeline: pipeline.NewOrchestrator[model.Order](cfg.PipelineConcurrency, pipeline.WithRetention(cfg.RetainExecutions)),
		policy:   env.Policy,
		audit:    newRecorder(env.Audit, "orders"),
	}
	s.kitchen = kitchen.New(cfg.Kitchen, s)
	return s
}

func (s *OrderService) Kitchen() *kitchen.Kitchen { return s.kitchen }

func (s *OrderService) Pipeline() *pipeline.Orchestrator[model.Order] { return s.pipeline }

// PlaceOrderAsync checks the request and returns as soon as the placement
// pipeline has started. The future resolves to the order as confirmed, or to
// the error that failed it; a failed order is marked FAILED.
func (s *OrderService) PlaceOrderAsync(ctx context.Context, actor permission.Staff, table int, items []model.MenuItem) (*pipeline.Future[model.Order], *pipeline.Execution, error) {
	if err := s.policy.Check(actor, permission.FamilyOrder, "place order"); err != nil {
		return nil, nil, err
	}
	if table < 1 || table > s.cfg.Tables {
		return nil, nil, apperr.Errorf(apperr.ErrUnknownResource, "OrderService.PlaceOrder", "", "no table %d", table)
	}
	if len(items) == 0 {
		return nil, nil, apperr.Errorf(apperr.ErrInvalidQuantity, "OrderService.PlaceOrder", "", "order has no items")
	}

	order := model.Order{
		ID:          uuid.New().String(),
		TableNumber: table,
		WaiterID:    actor.ID,
		Status:      model.OrderStatusPending,
		CreatedAt:   time.Now(),
	}

	future, execution := s.pipeline.Run(context.WithoutCancel(ctx), "place_order", order.ID, order,
		pipeline.Stage[model.Order]{
			Name: "create_order",
			Run: func(ctx context.Context, o model.Order) (model.Order, error) {
				return s.create(ctx, o, items)
			},
			Compensate: func(ctx context.Context, o model.Order) error {
				_, err := s.advance(ctx, o.ID, model.OrderStatusFailed)
				return err
			},
		},
		pipeline.Stage[model.Order]{
			Name: "submit_kitchen",
			Skip: func(o model.Order) bool { return !o.RequiresKitchenPrep() },
			Run: func(ctx context.Context, o model.Order) (model.Order, error) {
				return o, s.kitchen.Submit(ctx, o)
			},
			Marks: pipeline.StatusKitchenNotified,
		},
		pipeline.Stage[model.Order]{
			Name: "confirm_order",
			Run: func(ctx context.Context, o model.Order) (model.Order, error) {
				return s.advance(ctx, o.ID, model.OrderStatusConfirmed)
			},
		},
		pipeline.Stage[model.Order]{
			Name: "record",
			Run: func(ctx context.Context, o model.Order) (model.Order, error) {
				s.publish(ctx, o)
				s.audit.record(ctx, actor, "PLACE_ORDER", "Order", o.ID, "Placed order with %d items", len(o.Items))
				return o, nil
			},
		},
	)
	return future, execution, nil
}

// PlaceOrder places an order and waits for the pipeline to finish.
func (s *OrderService) PlaceOrder(ctx context.Context, actor permission.Staff, table int, items []model.MenuItem) (model.Order, error) {
	future, _, err := s.PlaceOrderAsync(ctx, actor, table, items)
	if err != nil {
		return model.Order{}, err
	}
	return future.Await(ctx)
}

func (s *OrderService) create(ctx context.Context, order model.Order, items []model.MenuItem) (model.Order, error) {
	for _, item := range items {
		if s.menu != nil {
			current, err := s.menu.Item(ctx, item.ID)
			if err != nil && !isNotFound(err) {
				return order, err
			}
			if err == nil {
				item = current
			}
		}
		if err := order.AddItem(item); err != nil {
			return order, err
		}
	}
	if _, err := s.orders.Create(ctx, order.ID, order); err != nil {
		return order, err
	}
	logging.WithOrder(order.ID).Info("order created", "table", order.TableNumber, "items", len(order.Items), "total", order.Total())
	return order, nil
}

// UpdateStatus moves an order forward on behalf of staff.
func (s *OrderService) UpdateStatus(ctx context.Context, actor permission.Staff, orderID string, status model.OrderStatus) error {
	if err := s.policy.Check(actor, permission.FamilyOrder, "update order status"); err != nil {
		return err
	}
	order, err := s.advance(ctx, orderID, status)
	if err != nil {
		return err
	}
	s.publish(ctx, order)
	s.audit.record(ctx, actor, "UPDATE_ORDER_STATUS", "Order", orderID, "Status changed to %s", status)
	return nil
}

func (s *OrderService) Cancel(ctx context.Context, actor permission.Staff, orderID string) error {
	return s.UpdateStatus(ctx, actor, orderID, model.OrderStatusCancelled)
}

// AdvanceStatus is how the kitchen reports progress. It skips the permission
// check.
func (s *OrderService) AdvanceStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	order, err := s.advance(ctx, orderID, status)
	if err != nil {
		return err
	}
	s.publish(ctx, order)
	s.audit.record(ctx, System, "UPDATE_ORDER_STATUS", "Order", orderID, "Status changed to %s", status)
	return nil
}

func (s *OrderService) advance(ctx context.Context, orderID string, status model.OrderStatus) (model.Order, error) {
	return s.mutate(ctx, orderID, func(o *model.Order) error {
		return o.Advance(status)
	})
}

// mutate runs fn under the order's writer slot and returns the committed
// order.
func (s *OrderService) mutate(ctx context.Context, orderID string, fn func(o *model.Order) error) (model.Order, error) {
	g, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	var out model.Order
	err = g.Write(ctx, func(_ context.Context, o *model.Order) error {
		if err := fn(o); err != nil {
			return err
		}
		out = *o
		return nil
	})
	return out, err
}

// publish reports the change to the front of house. A lost notification does
// not undo the change.
func (s *OrderService) publish(ctx context.Context, order model.Order) {
	if err := s.notifier.OrderUpdated(ctx, order); err != nil {
		logging.WithOrder(order.ID).Warn("order notification failed", "status", string(order.Status), "error", err)
	}
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	g, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	var out model.Order
	err = g.Read(ctx, func(o model.Order) error {
		out = o
		return nil
	})
	return out, err
}

// Orders lists every order the service has seen, by id.
func (s *OrderService) Orders(ctx context.Context) ([]model.Order, error) {
	out := make([]model.Order, 0, s.orders.Len())
	for _, id := range s.orders.IDs() {
		o, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
