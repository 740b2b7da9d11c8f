package model

import (
	"time"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Reservation struct {
	ID            string            `json:"id"`
	Customer      Customer          `json:"customer"`
	Time          time.Time         `json:"time"`
	PartySize     int               `json:"party_size"`
	AssignedTable int               `json:"assigned_table"`
	Status        ReservationStatus `json:"status"`
}

type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusSeated    ReservationStatus = "SEATED"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusNoShow    ReservationStatus = "NO_SHOW"
)

func (r Reservation) Key() string { return r.ID }

func (r Reservation) IsActive() bool {
	return r.Status == ReservationStatusConfirmed || r.Status == ReservationStatusSeated
}

// Seat assigns the reservation to a table. Table 0 means unassigned.
func (r *Reservation) Seat(table int) error {
	if !r.IsActive() {
		return apperr.Errorf(apperr.ErrInvalidTransition, "Reservation.Seat", r.ID, "reservation is %s", r.Status)
	}
	r.AssignedTable = table
	r.Status = ReservationStatusSeated
	return nil
}

func (r *Reservation) Cancel() error {
	if !r.IsActive() {
		return apperr.Errorf(apperr.ErrInvalidTransition, "Reservation.Cancel", r.ID, "reservation is %s", r.Status)
	}
	r.Status = ReservationStatusCancelled
	r.AssignedTable = 0
	return nil
}

// Complete closes a seated reservation when the party leaves.
func (r *Reservation) Complete() error {
	if r.Status != ReservationStatusSeated {
		return apperr.Errorf(apperr.ErrInvalidTransition, "Reservation.Complete", r.ID, "reservation is %s", r.Status)
	}
	r.Status = ReservationStatusCompleted
	return nil
}
