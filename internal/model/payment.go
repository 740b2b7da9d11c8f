package model

import "time"

type Payment struct {
	ID        string        `json:"id"`
	OrderID   string        `json:"order_id"`
	Method    PaymentMethod `json:"method"`
	Amount    float64       `json:"amount"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

func (p Payment) Key() string { return p.ID }

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "CASH"
	PaymentMethodCard PaymentMethod = "CARD"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	// PaymentStatusVoided marks a payment whose order could not be settled.
	PaymentStatusVoided PaymentStatus = "voided"
)
