package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/config"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/pipeline"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/service"
)

type restaurant struct {
	menu         *service.MenuService
	inventory    *service.InventoryService
	reservations *service.ReservationService
	tables       *service.TableService
	orders       *service.OrderService
	payments     *service.PaymentService
	analytics    *service.AnalyticsService
}

var manager = permission.Staff{ID: "manager-1", Name: "Manager", Role: permission.RoleManager}

var menu = []model.MenuItem{
	{ID: "steak", Name: "Steak", Category: model.MenuCategoryEntree, Price: 24.5, Available: true},
	{ID: "pasta", Name: "Pasta", Category: model.MenuCategoryEntree, Price: 14, Available: true},
	{ID: "tiramisu", Name: "Tiramisu", Category: model.MenuCategoryDessert, Price: 7.5, Available: true},
	{ID: "lemonade", Name: "Lemonade", Category: model.MenuCategoryDrink, Price: 3.5, Available: true},
	{ID: "espresso", Name: "Espresso", Category: model.MenuCategoryDrink, Price: 2.5, Available: true},
}

func (r *restaurant) seed(ctx context.Context) error {
	for _, item := range menu {
		if _, err := r.menu.AddItem(ctx, manager, item); err != nil {
			return err
		}
	}
	stock := []model.InventoryItem{
		model.NewInventoryItem("steak", "Steak", "portion", 1000, 50, 2000),
		model.NewInventoryItem("pasta", "Pasta", "kg", 200, 20, 400),
		model.NewInventoryItem("tiramisu", "Tiramisu", "slice", 30, 5, 60),
	}
	for _, item := range stock {
		if err := r.inventory.AddItem(ctx, manager, item); err != nil {
			return err
		}
	}
	return nil
}

type demoReport struct {
	placed, failed       atomic.Int64
	reductions, restocks atomic.Int64
	rejected             atomic.Int64
	transfers, refused   atomic.Int64
	payments             atomic.Int64
}

// runDemo puts the services under the load a busy evening would: waiters
// placing orders, managers moving stock and a party changing tables.
func (r *restaurant) runDemo(ctx context.Context, cfg config.Config) *demoReport {
	report := &demoReport{}
	var wg sync.WaitGroup

	for w := 0; w < cfg.DemoWaiters; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r.waiterShift(ctx, cfg, w, report)
		}(w)
	}
	for i := 0; i < cfg.DemoRestockers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.stockShift(ctx, report)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.tableShuffle(ctx, cfg, report)
	}()

	wg.Wait()
	return report
}

func (r *restaurant) waiterShift(ctx context.Context, cfg config.Config, w int, report *demoReport) {
	staff := permission.Staff{ID: fmt.Sprintf("waiter-%d", w+1), Name: fmt.Sprintf("Waiter %d", w+1), Role: permission.RoleWaiter}
	log := logging.WithComponent("demo").With("waiter", staff.ID)

	futures := make([]*pipeline.Future[model.Order], 0, cfg.DemoOrders)
	for i := 0; i < cfg.DemoOrders; i++ {
		table := (w*cfg.DemoOrders+i)%cfg.Tables + 1
		items := []model.MenuItem{menu[(w+i)%len(menu)], menu[3+i%2]}
		future, _, err := r.orders.PlaceOrderAsync(ctx, staff, table, items)
		if err != nil {
			report.failed.Add(1)
			log.Warn("order rejected", "error", err)
			continue
		}
		futures = append(futures, future)
	}

	for _, future := range futures {
		order, err := future.Await(ctx)
		if err != nil {
			report.failed.Add(1)
			log.Warn("order failed", "error", err)
			continue
		}
		report.placed.Add(1)
		if order.RequiresKitchenPrep() {
			continue
		}
		if err := r.orders.UpdateStatus(ctx, staff, order.ID, model.OrderStatusServed); err != nil {
			log.Warn("could not serve order", "order_id", order.ID, "error", err)
			continue
		}
		if _, err := r.payments.ProcessPayment(ctx, staff, order.ID, model.PaymentMethodCard); err != nil {
			log.Warn("payment failed", "order_id", order.ID, "error", err)
			continue
		}
		report.payments.Add(1)
	}
}

func (r *restaurant) stockShift(ctx context.Context, report *demoReport) {
	for i := 0; i < 10 && ctx.Err() == nil; i++ {
		for _, id := range []string{"steak", "pasta", "tiramisu"} {
			err := r.inventory.ReduceStock(ctx, manager, id, 5)
			switch {
			case err == nil:
				report.reductions.Add(1)
			case errors.Is(err, apperr.ErrInsufficientStock):
				report.rejected.Add(1)
			default:
				logging.WithItem(id).Warn("stock reduction failed", "error", err)
			}
		}
		if err := r.inventory.Restock(ctx, manager, "tiramisu", 10); err == nil {
			report.restocks.Add(1)
		}
	}

	low, err := r.inventory.LowStock(ctx)
	if err == nil {
		for _, item := range low {
			logging.WithItem(item.ID).Info("low stock", "level", item.StockLevel(), "status", string(item.Status()))
		}
	}
}

// tableShuffle moves one party back and forth between two tables from two
// goroutines at once.
func (r *restaurant) tableShuffle(ctx context.Context, cfg config.Config, report *demoReport) {
	if cfg.Tables < 2 {
		return
	}
	log := logging.WithComponent("demo")
	res, err := r.reservations.Create(ctx, manager, model.Customer{Name: "Walk-in"}, time.Now(), 4)
	if err != nil {
		log.Warn("reservation failed", "error", err)
		return
	}
	if err := r.tables.ReserveWithRetry(ctx, manager, res.ID, 1); err != nil {
		log.Warn("could not seat party", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, dir := range [][2]int{{1, 2}, {2, 1}} {
		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for i := 0; i < 50 && ctx.Err() == nil; i++ {
				if err := r.tables.Transfer(ctx, manager, res.ID, from, to); err != nil {
					report.refused.Add(1)
					continue
				}
				report.transfers.Add(1)
			}
		}(dir[0], dir[1])
	}
	wg.Wait()

	if err := r.tables.Release(ctx, manager, res.ID); err != nil {
		log.Warn("could not release party", "error", err)
	}
}

// printAnalytics starts both reports together and prints them once ready.
func (r *restaurant) printAnalytics(ctx context.Context) error {
	topFuture, err := r.analytics.TopSellingAsync(ctx, manager)
	if err != nil {
		return err
	}
	revenueFuture, err := r.analytics.RevenueTodayAsync(ctx, manager)
	if err != nil {
		return err
	}

	top, err := topFuture.Await(ctx)
	if err != nil {
		return err
	}
	revenue, err := revenueFuture.Await(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Revenue today: %.2f\n", revenue)
	for i, item := range top {
		if i == 3 {
			break
		}
		fmt.Printf("  #%d %s (%d sold)\n", i+1, item.Name, item.Count)
	}
	return nil
}
