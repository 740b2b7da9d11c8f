package kitchen

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/workpool"
)

type statusLog struct {
	mu      sync.Mutex
	updates map[string][]model.OrderStatus
}

func newStatusLog() *statusLog {
	return &statusLog{updates: make(map[string][]model.OrderStatus)}
}

func (s *statusLog) AdvanceStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[orderID] = append(s.updates[orderID], status)
	return nil
}

func (s *statusLog) get(orderID string) []model.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OrderStatus(nil), s.updates[orderID]...)
}

func order(id string, items int) model.Order {
	o := model.Order{ID: id, TableNumber: 3}
	for i := 0; i < items; i++ {
		o.Items = append(o.Items, model.MenuItem{ID: "e", Name: "Steak", Category: model.MenuCategoryEntree, Available: true})
	}
	return o
}

func TestPerItem_CookTime(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, PerItem(500*time.Millisecond).CookTime(TicketFor(order("o", 3))))
}

func TestKitchen_CooksOrdersToReady(t *testing.T) {
	log := newStatusLog()
	k := New(Config{
		Workers:       2,
		QueueCapacity: 10,
		SubmitTimeout: time.Second,
		PollInterval:  5 * time.Millisecond,
		CookTimer:     PerItem(time.Millisecond),
	}, log)
	require.NoError(t, k.Start(context.Background()))

	for _, id := range []string{"o1", "o2", "o3"} {
		require.NoError(t, k.Submit(context.Background(), order(id, 2)))
	}

	require.Eventually(t, func() bool {
		return k.Stats().Processed == 3
	}, 2*time.Second, 5*time.Millisecond)

	for _, id := range []string{"o1", "o2", "o3"} {
		assert.Equal(t, []model.OrderStatus{model.OrderStatusInPreparation, model.OrderStatusReady}, log.get(id))
	}
	assert.Empty(t, k.Shutdown(time.Second))
	assert.Equal(t, workpool.StateStopped, k.State())
}

func TestKitchen_FullQueuePushesBack(t *testing.T) {
	k := New(Config{
		Workers:       1,
		QueueCapacity: 1,
		SubmitTimeout: 20 * time.Millisecond,
		CookTimer:     PerItem(time.Millisecond),
	}, newStatusLog())

	require.NoError(t, k.Submit(context.Background(), order("o1", 1)))
	err := k.Submit(context.Background(), order("o2", 1))
	assert.ErrorIs(t, err, apperr.ErrQueueFull)
	assert.Equal(t, 1, k.QueueSize())

	left := k.Shutdown(time.Second)
	require.Len(t, left, 1)
	assert.Equal(t, "o1", left[0].OrderID)
	assert.ErrorIs(t, k.Submit(context.Background(), order("o3", 1)), apperr.ErrStopped)
}

func TestKitchen_ShutdownInterruptsLongCook(t *testing.T) {
	log := newStatusLog()
	k := New(Config{
		Workers:       1,
		QueueCapacity: 4,
		SubmitTimeout: time.Second,
		PollInterval:  5 * time.Millisecond,
		CookTimer:     PerItem(time.Hour),
	}, log)
	require.NoError(t, k.Start(context.Background()))
	require.NoError(t, k.Submit(context.Background(), order("slow", 1)))

	require.Eventually(t, func() bool { return len(log.get("slow")) == 1 }, time.Second, 5*time.Millisecond)

	left := k.Shutdown(20 * time.Millisecond)
	require.Len(t, left, 1)
	assert.Equal(t, "slow", left[0].OrderID)
	assert.Equal(t, []model.OrderStatus{model.OrderStatusInPreparation}, log.get("slow"))
}
