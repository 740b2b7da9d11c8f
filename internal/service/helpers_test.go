package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/audit"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/kitchen"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/notify"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/store"
)

var (
	manager = permission.Staff{ID: "m1", Name: "Maria", Role: permission.RoleManager}
	waiter  = permission.Staff{ID: "w1", Name: "Will", Role: permission.RoleWaiter}
	chef    = permission.Staff{ID: "c1", Name: "Chen", Role: permission.RoleChef}
)

var (
	steak = model.MenuItem{ID: "steak", Name: "Steak", Category: model.MenuCategoryEntree, Price: 25, Available: true}
	cake  = model.MenuItem{ID: "cake", Name: "Cake", Category: model.MenuCategoryDessert, Price: 8, Available: true}
	soda  = model.MenuItem{ID: "soda", Name: "Soda", Category: model.MenuCategoryDrink, Price: 3, Available: true}
)

func newEnv() (Env, *audit.Memory) {
	sink := audit.NewMemory()
	return Env{Policy: permission.DefaultPolicy(), Audit: sink}, sink
}

type failingSink struct{}

func (failingSink) Append(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	return audit.Entry{}, errors.New("audit store down")
}

func (failingSink) TailHash(ctx context.Context) (string, error) {
	return "", errors.New("audit store down")
}

func fastKitchen() kitchen.Config {
	return kitchen.Config{
		Workers:       2,
		QueueCapacity: 10,
		SubmitTimeout: 200 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
		CookTimer:     kitchen.PerItem(time.Millisecond),
	}
}

type orderFixture struct {
	env      Env
	sink     *audit.Memory
	menu     *MenuService
	orders   *OrderService
	payments *PaymentService
	notes    *notify.Recorder
}

// newOrderFixture wires menu, orders and payments over memory stores. The
// kitchen is started unless cfg.Kitchen.Workers is zero, and shut down when
// the test ends.
func newOrderFixture(t *testing.T, cfg OrderConfig) *orderFixture {
	t.Helper()
	env, sink := newEnv()
	f := &orderFixture{env: env, sink: sink, notes: &notify.Recorder{}}
	f.menu = NewMenuService(store.NewMemory[model.MenuItem](), env)
	for _, item := range []model.MenuItem{steak, cake, soda} {
		_, err := f.menu.AddItem(context.Background(), manager, item)
		require.NoError(t, err)
	}
	f.orders = NewOrderService(cfg, store.NewMemory[model.Order](), f.menu, f.notes, env)
	f.payments = NewPaymentService(f.orders, store.NewMemory[model.Payment](), env)

	if cfg.Kitchen.Workers > 0 {
		require.NoError(t, f.orders.Kitchen().Start(context.Background()))
		t.Cleanup(func() { f.orders.Kitchen().Shutdown(time.Second) })
	}
	return f
}

func (f *orderFixture) waitForStatus(t *testing.T, orderID string, status model.OrderStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		o, err := f.orders.GetOrder(context.Background(), orderID)
		return err == nil && o.Status == status
	}, 2*time.Second, 5*time.Millisecond, "order %s never reached %s", orderID, status)
}

func actions(entries []audit.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}
