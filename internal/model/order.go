package model

import (
	"time"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

type Order struct {
	ID          string      `json:"id"`
	TableNumber int         `json:"table_number"`
	WaiterID    string      `json:"waiter_id"`
	Items       []MenuItem  `json:"items"`
	Status      OrderStatus `json:"status"`
	Payment     *Payment    `json:"payment,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "PENDING"
	OrderStatusConfirmed     OrderStatus = "CONFIRMED"
	OrderStatusInPreparation OrderStatus = "IN_PREPARATION"
	OrderStatusReady         OrderStatus = "READY"
	OrderStatusServed        OrderStatus = "SERVED"
	OrderStatusPaid          OrderStatus = "PAID"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
	OrderStatusFailed        OrderStatus = "FAILED"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:       0,
	OrderStatusConfirmed:     1,
	OrderStatusInPreparation: 2,
	OrderStatusReady:         3,
	OrderStatusServed:        4,
	OrderStatusPaid:          5,
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(s)
	switch status {
	case OrderStatusCancelled, OrderStatusFailed:
		return status, true
	}
	_, ok := orderStatusRank[status]
	return status, ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled || s == OrderStatusFailed
}

func (o Order) Key() string { return o.ID }

func (o *Order) AddItem(item MenuItem) error {
	if !item.Available {
		return apperr.Errorf(apperr.ErrItemUnavailable, "Order.AddItem", item.ID, "item not available: %s", item.Name)
	}
	o.Items = append(o.Items, item)
	return nil
}

func (o Order) Total() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Price
	}
	return total
}

func (o Order) RequiresKitchenPrep() bool {
	for _, item := range o.Items {
		if item.RequiresKitchenPrep() {
			return true
		}
	}
	return false
}

// Advance moves the order forward. Moving to a status the order already
// passed is a no-op, so a late CONFIRMED never overwrites READY. Terminal
// orders reject every change.
func (o *Order) Advance(next OrderStatus) error {
	if next == o.Status {
		return nil
	}
	if o.Status.Terminal() {
		return apperr.Errorf(apperr.ErrInvalidTransition, "Order.Advance", o.ID, "order is %s, cannot move to %s", o.Status, next)
	}
	if next == OrderStatusCancelled || next == OrderStatusFailed {
		o.Status = next
		return nil
	}
	rank, ok := orderStatusRank[next]
	if !ok {
		return apperr.Errorf(apperr.ErrInvalidTransition, "Order.Advance", o.ID, "unknown order status %q", next)
	}
	if rank > orderStatusRank[o.Status] {
		o.Status = next
	}
	return nil
}

func (o *Order) Pay(payment Payment) error {
	if o.Status != OrderStatusServed {
		return apperr.Errorf(apperr.ErrInvalidTransition, "Order.Pay", o.ID, "order must be served before payment, status is %s", o.Status)
	}
	o.Payment = &payment
	o.Status = OrderStatusPaid
	return nil
}
