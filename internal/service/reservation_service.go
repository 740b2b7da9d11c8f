package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/guard"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
)

type ReservationService struct {
	reservations *guard.Registry[model.Reservation]
	policy       *permission.Policy
	audit        recorder
}

func NewReservationService(repo guard.Repository[model.Reservation], env Env, opts ...guard.Option) *ReservationService {
	env = env.withDefaults()
	return &ReservationService{
		reservations: guard.NewRegistry(repo, opts...),
		policy:       env.Policy,
		audit:        newRecorder(env.Audit, "reservation"),
	}
}

func (s *ReservationService) Create(ctx context.Context, actor permission.Staff, customer model.Customer, at time.Time, partySize int) (model.Reservation, error) {
	if err := s.policy.Check(actor, permission.FamilyReservation, "create reservation"); err != nil {
		return model.Reservation{}, err
	}
	if partySize <= 0 {
		return model.Reservation{}, apperr.Errorf(apperr.ErrInvalidQuantity, "ReservationService.Create", customer.Name, "party size must be positive: %d", partySize)
	}

	r := model.Reservation{
		ID:        uuid.New().String(),
		Customer:  customer,
		Time:      at,
		PartySize: partySize,
		Status:    model.ReservationStatusConfirmed,
	}
	if _, err := s.reservations.Create(ctx, r.ID, r); err != nil {
		return model.Reservation{}, err
	}

	s.audit.record(ctx, actor, "CREATE_RESERVATION", "Reservation", r.ID, "Reserved for %s, party of %d", customer.Name, partySize)
	return r, nil
}

// Cancel cancels a reservation that has not been seated yet. A seated party
// leaves through TableService.Release.
func (s *ReservationService) Cancel(ctx context.Context, actor permission.Staff, reservationID string) error {
	if err := s.policy.Check(actor, permission.FamilyReservation, "cancel reservation"); err != nil {
		return err
	}
	g, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return err
	}

	err = g.Write(ctx, func(_ context.Context, r *model.Reservation) error {
		if r.AssignedTable != 0 {
			return apperr.Errorf(apperr.ErrInvalidTransition, "ReservationService.Cancel", r.ID, "reservation is seated at table %d", r.AssignedTable)
		}
		return r.Cancel()
	})
	if err != nil {
		return err
	}

	s.audit.record(ctx, actor, "CANCEL_RESERVATION", "Reservation", reservationID, "Reservation cancelled")
	return nil
}

// Find reads the last committed reservation without waiting on writers.
func (s *ReservationService) Find(ctx context.Context, reservationID string) (model.Reservation, error) {
	g, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, err
	}
	var out model.Reservation
	err = g.Read(ctx, func(r model.Reservation) error {
		out = r
		return nil
	})
	return out, err
}

// update runs fn under the reservation's writer slot.
func (s *ReservationService) update(ctx context.Context, reservationID string, fn func(r *model.Reservation) error) error {
	g, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return err
	}
	return g.Write(ctx, func(_ context.Context, r *model.Reservation) error {
		return fn(r)
	})
}
