package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/guard"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
)

type PaymentService struct {
	orders   *OrderService
	payments *guard.Registry[model.Payment]
	policy   *permission.Policy
	audit    recorder
}

func NewPaymentService(orders *OrderService, repo guard.Repository[model.Payment], env Env, opts ...guard.Option) *PaymentService {
	env = env.withDefaults()
	return &PaymentService{
		orders:   orders,
		payments: guard.NewRegistry(repo, opts...),
		policy:   env.Policy,
		audit:    newRecorder(env.Audit, "payments"),
	}
}

// ProcessPayment settles a served order for its full total. The payment is
// stored inside the order's write, so the order only becomes PAID once its
// payment exists. A payment whose order then fails to save is voided.
func (s *PaymentService) ProcessPayment(ctx context.Context, actor permission.Staff, orderID string, method model.PaymentMethod) (model.Payment, error) {
	if err := s.policy.Check(actor, permission.FamilyPayment, "process payment"); err != nil {
		return model.Payment{}, err
	}

	payment := model.Payment{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Method:    method,
		Status:    model.PaymentStatusCompleted,
		CreatedAt: time.Now(),
	}
	var stored *guard.Guard[model.Payment]
	order, err := s.orders.mutate(ctx, orderID, func(o *model.Order) error {
		payment.Amount = o.Total()
		if err := o.Pay(payment); err != nil {
			return err
		}
		g, err := s.payments.Create(ctx, payment.ID, payment)
		if err != nil {
			return err
		}
		stored = g
		return nil
	})
	if err != nil {
		if stored != nil {
			s.void(ctx, stored)
		}
		return model.Payment{}, err
	}

	s.orders.publish(ctx, order)
	s.audit.record(ctx, actor, "PROCESS_PAYMENT", "Payment", payment.ID, "Paid %.2f by %s for order %s", payment.Amount, method, orderID)
	return payment, nil
}

func (s *PaymentService) void(ctx context.Context, g *guard.Guard[model.Payment]) {
	err := g.Write(context.WithoutCancel(ctx), func(_ context.Context, p *model.Payment) error {
		p.Status = model.PaymentStatusVoided
		return nil
	})
	if err != nil {
		logging.WithError(err).Error("could not void payment", "payment_id", g.ID())
	}
}

// Refund marks a completed payment refunded. The order stays PAID.
func (s *PaymentService) Refund(ctx context.Context, actor permission.Staff, paymentID string) error {
	if err := s.policy.Check(actor, permission.FamilyPayment, "refund payment"); err != nil {
		return err
	}
	g, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return err
	}

	var amount float64
	err = g.Write(ctx, func(_ context.Context, p *model.Payment) error {
		if p.Status != model.PaymentStatusCompleted {
			return apperr.Errorf(apperr.ErrInvalidTransition, "PaymentService.Refund", p.ID, "payment is %s", p.Status)
		}
		p.Status = model.PaymentStatusRefunded
		amount = p.Amount
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.record(ctx, actor, "REFUND_PAYMENT", "Payment", paymentID, "Refunded %.2f", amount)
	return nil
}

func (s *PaymentService) Payment(ctx context.Context, paymentID string) (model.Payment, error) {
	g, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return model.Payment{}, err
	}
	var out model.Payment
	err = g.Read(ctx, func(p model.Payment) error {
		out = p
		return nil
	})
	return out, err
}
