package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/kitchen"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/pipeline"
)

func TestOrderService_PlaceOrderReachesReady(t *testing.T) {
	f := newOrderFixture(t, OrderConfig{Kitchen: fastKitchen(), Tables: 20})
	ctx := context.Background()

	future, execution, err := f.orders.PlaceOrderAsync(ctx, waiter, 4, []model.MenuItem{steak, soda})
	require.NoError(t, err)

	order, err := future.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, order.TableNumber)
	assert.Equal(t, waiter.ID, order.WaiterID)
	assert.InDelta(t, 28.0, order.Total(), 0.001)

	<-execution.Done()
	assert.Equal(t, pipeline.StatusConfirmed, execution.Status())
	for _, step := range execution.Steps() {
		assert.Equal(t, pipeline.StepStatusCompleted, step.Status, "step %s", step.Name)
	}

	f.waitForStatus(t, order.ID, model.OrderStatusReady)
	assert.Contains(t, actions(f.sink.Entries()), "PLACE_ORDER")
	assert.True(t, f.sink.Verify())
}

func TestOrderService_DrinksSkipKitchen(t *testing.T) {
	f := newOrderFixture(t, OrderConfig{Kitchen: fastKitchen()})
	ctx := context.Background()

	order, err := f.orders.PlaceOrder(ctx, waiter, 2, []model.MenuItem{soda, soda})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)

	executions := f.orders.Pipeline().Executions()
	require.Len(t, executions, 1)
	assert.Equal(t, pipeline.StepStatusSkipped, executions[0].Steps()[1].Status)
	assert.Zero(t, f.orders.Kitchen().Stats().Processed)

	updates := f.notes.Updates()
	require.NotEmpty(t, updates)
	assert.Equal(t, model.OrderStatusConfirmed, updates[len(updates)-1].Status)
}

func TestOrderService_FullKitchenFailsOrder(t *testing.T) {
	cfg := OrderConfig{Kitchen: kitchen.Config{
		QueueCapacity: 1,
		SubmitTimeout: 20 * time.Millisecond,
		CookTimer:     kitchen.PerItem(time.Millisecond),
	}}
	f := newOrderFixture(t, cfg)
	ctx := context.Background()

	_, err := f.orders.PlaceOrder(ctx, waiter, 1, []model.MenuItem{steak})
	require.NoError(t, err)

	future, execution, err := f.orders.PlaceOrderAsync(ctx, waiter, 2, []model.MenuItem{cake})
	require.NoError(t, err)
	_, err = future.Await(ctx)
	assert.ErrorIs(t, err, apperr.ErrQueueFull)

	<-execution.Done()
	assert.Equal(t, pipeline.StatusFailed, execution.Status())
	steps := execution.Steps()
	assert.Equal(t, pipeline.StepStatusCompensated, steps[0].Status)
	assert.Equal(t, pipeline.StepStatusFailed, steps[1].Status)
	assert.Equal(t, pipeline.StepStatusPending, steps[2].Status)

	failed, err := f.orders.GetOrder(ctx, execution.SubjectID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, failed.Status)
}

func TestOrderService_UnavailableItemCreatesNothing(t *testing.T) {
	f := newOrderFixture(t, OrderConfig{Kitchen: fastKitchen()})
	ctx := context.Background()
	require.NoError(t, f.menu.SetAvailability(ctx, "cake", false))

	_, err := f.orders.PlaceOrder(ctx, waiter, 3, []model.MenuItem{soda, cake})
	assert.ErrorIs(t, err, apperr.ErrItemUnavailable)

	orders, err := f.orders.Orders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_RejectsBeforeStarting(t *testing.T) {
	f := newOrderFixture(t, OrderConfig{Kitchen: fastKitchen(), Tables: 10})
	ctx := context.Background()

	future, _, err := f.orders.PlaceOrderAsync(ctx, chef, 1, []model.MenuItem{soda})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Nil(t, future)

	_, _, err = f.orders.PlaceOrderAsync(ctx, waiter, 11, []model.MenuItem{soda})
	assert.ErrorIs(t, err, apperr.ErrUnknownResource)

	_, _, err = f.orders.PlaceOrderAsync(ctx, waiter, 1, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)

	assert.Empty(t, f.orders.Pipeline().Executions())
}

func TestOrderService_UpdateStatusAndCancel(t *testing.T) {
	f := newOrderFixture(t, OrderConfig{Kitchen: fastKitchen()})
	ctx := context.Background()

	order, err := f.orders.PlaceOrder(ctx, waiter, 5, []model.MenuItem{soda})
	require.NoError(t, err)

	assert.ErrorIs(t, f.orders.UpdateStatus(ctx, chef, order.ID, model.OrderStatusServed), apperr.ErrForbidden)
	require.NoError(t, f.orders.Cancel(ctx, waiter, order.ID))

	got, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)

	err = f.orders.UpdateStatus(ctx, waiter, order.ID, model.OrderStatusServed)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.ErrorIs(t, f.orders.UpdateStatus(ctx, waiter, "missing", model.OrderStatusServed), apperr.ErrNotFound)
}

func TestOrderService_ManyOrdersDoNotBlockCaller(t *testing.T) {
	cfg := OrderConfig{Kitchen: fastKitchen(), PipelineConcurrency: 2}
	cfg.Kitchen.QueueCapacity = 50
	cfg.Kitchen.CookTimer = kitchen.PerItem(20 * time.Millisecond)
	f := newOrderFixture(t, cfg)
	ctx := context.Background()

	start := time.Now()
	futures := make([]*pipeline.Future[model.Order], 0, 20)
	for i := 0; i < 20; i++ {
		future, _, err := f.orders.PlaceOrderAsync(ctx, waiter, i%5+1, []model.MenuItem{steak})
		require.NoError(t, err)
		futures = append(futures, future)
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	for _, future := range futures {
		order, err := future.Await(ctx)
		require.NoError(t, err)
		f.waitForStatus(t, order.ID, model.OrderStatusReady)
	}
	require.NoError(t, f.orders.Pipeline().Wait(ctx))
}

func TestOrderService_KeepsBoundedPlacementHistory(t *testing.T) {
	f := newOrderFixture(t, OrderConfig{Kitchen: fastKitchen(), RetainExecutions: 4})
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := f.orders.PlaceOrder(ctx, waiter, i%3+1, []model.MenuItem{soda})
		require.NoError(t, err)
	}
	require.NoError(t, f.orders.Pipeline().Wait(ctx))

	assert.Len(t, f.orders.Pipeline().Executions(), 4)
	orders, err := f.orders.Orders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 12)
}
