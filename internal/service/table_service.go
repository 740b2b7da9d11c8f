package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/logging"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/model"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/multilock"
	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/permission"
)

type TableConfig struct {
	Tables int

	// LockTimeout bounds each table lock for seating and transfers.
	LockTimeout time.Duration

	// GroupLockTimeout bounds each table lock when several tables are taken
	// at once.
	GroupLockTimeout time.Duration

	Retry multilock.RetryPolicy
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		Tables:           50,
		LockTimeout:      time.Second,
		GroupLockTimeout: 2 * time.Second,
		Retry:            multilock.DefaultRetryPolicy(),
	}
}

// TableService seats reservations at tables and moves them between tables.
// Table locks are always taken in ascending table order, then the
// reservation's guard.
type TableService struct {
	cfg          TableConfig
	locks        *multilock.Coordinator[int]
	reservations *ReservationService
	policy       *permission.Policy
	audit        recorder

	// occupants[t] is read and written only while table t is locked.
	occupants []string

	// held maps a reservation to its tables. It is only changed while those
	// tables are locked, and mu is never held while waiting for a table.
	mu   sync.Mutex
	held map[string][]int
}

func NewTableService(cfg TableConfig, reservations *ReservationService, env Env) *TableService {
	env = env.withDefaults()
	d := DefaultTableConfig()
	if cfg.Tables <= 0 {
		cfg.Tables = d.Tables
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = d.LockTimeout
	}
	if cfg.GroupLockTimeout <= 0 {
		cfg.GroupLockTimeout = d.GroupLockTimeout
	}
	return &TableService{
		cfg:          cfg,
		locks:        multilock.NewRange(cfg.Tables),
		reservations: reservations,
		policy:       env.Policy,
		audit:        newRecorder(env.Audit, "tables"),
		occupants:    make([]string, cfg.Tables+1),
		held:         make(map[string][]int),
	}
}

// Seat assigns a confirmed reservation to a free table.
func (s *TableService) Seat(ctx context.Context, actor permission.Staff, reservationID string, table int) error {
	return s.TryReserve(ctx, actor, reservationID, table, s.cfg.LockTimeout)
}

// TryReserve gives up with ErrAcquireTimeout when the table lock is not free
// within timeout.
func (s *TableService) TryReserve(ctx context.Context, actor permission.Staff, reservationID string, table int, timeout time.Duration) error {
	if err := s.policy.Check(actor, permission.FamilyReservation, "reserve table"); err != nil {
		return err
	}
	tables := []int{table}
	err := s.locks.TryWithLocks(ctx, tables, timeout, func() error {
		return s.claim(ctx, reservationID, tables)
	})
	if err != nil {
		return err
	}

	s.audit.record(ctx, actor, "RESERVE_TABLE", "Reservation", reservationID, "Seated at table %d", table)
	return nil
}

// ReserveWithRetry retries a contended table with exponential backoff.
func (s *TableService) ReserveWithRetry(ctx context.Context, actor permission.Staff, reservationID string, table int) error {
	if err := s.policy.Check(actor, permission.FamilyReservation, "reserve table"); err != nil {
		return err
	}
	tables := []int{table}
	err := s.locks.RetryWithLocks(ctx, tables, s.cfg.Retry, func() error {
		return s.claim(ctx, reservationID, tables)
	})
	if err != nil {
		return err
	}

	s.audit.record(ctx, actor, "RESERVE_TABLE", "Reservation", reservationID, "Seated at table %d", table)
	return nil
}

// ReserveGroup seats one reservation across several tables, all or none.
// The reservation's assigned table is the lowest of them.
func (s *TableService) ReserveGroup(ctx context.Context, actor permission.Staff, reservationID string, tables []int) error {
	if err := s.policy.Check(actor, permission.FamilyReservation, "reserve tables"); err != nil {
		return err
	}
	tables = slices.Compact(slices.Sorted(slices.Values(tables)))
	if len(tables) == 0 {
		return apperr.Errorf(apperr.ErrInvalidQuantity, "TableService.ReserveGroup", reservationID, "no tables requested")
	}

	err := s.locks.TryWithLocks(ctx, tables, s.cfg.GroupLockTimeout, func() error {
		return s.claim(ctx, reservationID, tables)
	})
	if err != nil {
		return err
	}

	s.audit.record(ctx, actor, "RESERVE_TABLES", "Reservation", reservationID, "Seated at tables %v", tables)
	return nil
}

// claim runs with every table in tables locked.
func (s *TableService) claim(ctx context.Context, reservationID string, tables []int) error {
	for _, t := range tables {
		if occupant := s.occupants[t]; occupant != "" {
			return apperr.Errorf(apperr.ErrTableOccupied, "TableService.claim", reservationID, "table %d is occupied by %s", t, occupant)
		}
	}

	err := s.reservations.update(ctx, reservationID, func(r *model.Reservation) error {
		if r.Status == model.ReservationStatusSeated {
			return apperr.Errorf(apperr.ErrInvalidTransition, "TableService.claim", r.ID, "reservation already seated at table %d", r.AssignedTable)
		}
		return r.Seat(tables[0])
	})
	if err != nil {
		return err
	}

	for _, t := range tables {
		s.occupants[t] = reservationID
	}
	s.mu.Lock()
	s.held[reservationID] = slices.Clone(tables)
	s.mu.Unlock()
	return nil
}

// Transfer moves a seated reservation from one table to another. The source
// must hold the reservation and the target must be free; otherwise nothing
// changes.
func (s *TableService) Transfer(ctx context.Context, actor permission.Staff, reservationID string, from, to int) error {
	if err := s.policy.Check(actor, permission.FamilyReservation, "transfer table"); err != nil {
		return err
	}
	if from == to {
		return apperr.Errorf(apperr.ErrInvalidTransition, "TableService.Transfer", reservationID, "reservation is already at table %d", to)
	}

	err := s.locks.TryWithLocks(ctx, []int{from, to}, s.cfg.LockTimeout, func() error {
		if s.occupants[from] != reservationID {
			return apperr.Errorf(apperr.ErrTableMismatch, "TableService.Transfer", reservationID, "table %d does not hold reservation %s", from, reservationID)
		}
		if occupant := s.occupants[to]; occupant != "" {
			return apperr.Errorf(apperr.ErrTableOccupied, "TableService.Transfer", reservationID, "table %d is occupied by %s", to, occupant)
		}

		err := s.reservations.update(ctx, reservationID, func(r *model.Reservation) error {
			if r.AssignedTable == from {
				r.AssignedTable = to
			}
			return nil
		})
		if err != nil {
			return err
		}

		s.occupants[from] = ""
		s.occupants[to] = reservationID
		s.mu.Lock()
		tables := s.held[reservationID]
		tables[slices.Index(tables, from)] = to
		slices.Sort(tables)
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}

	logging.WithTable(to).Info("reservation transferred", "reservation_id", reservationID, "from", from)
	s.audit.record(ctx, actor, "TRANSFER_TABLE", "Reservation", reservationID, "Moved from table %d to table %d", from, to)
	return nil
}

// Release frees every table of a seated reservation and completes it.
func (s *TableService) Release(ctx context.Context, actor permission.Staff, reservationID string) error {
	if err := s.policy.Check(actor, permission.FamilyReservation, "release table"); err != nil {
		return err
	}

	for {
		tables := s.tablesOf(reservationID)
		if len(tables) == 0 {
			return apperr.Errorf(apperr.ErrNotFound, "TableService.Release", reservationID, "reservation %s holds no table", reservationID)
		}

		moved := false
		err := s.locks.TryWithLocks(ctx, tables, s.cfg.LockTimeout, func() error {
			if !slices.Equal(s.tablesOf(reservationID), tables) {
				moved = true
				return nil
			}
			if err := s.reservations.update(ctx, reservationID, (*model.Reservation).Complete); err != nil {
				return err
			}
			for _, t := range tables {
				s.occupants[t] = ""
			}
			s.mu.Lock()
			delete(s.held, reservationID)
			s.mu.Unlock()
			return nil
		})
		if err != nil {
			return err
		}
		if !moved {
			s.audit.record(ctx, actor, "RELEASE_TABLE", "Reservation", reservationID, "Released tables %v", tables)
			return nil
		}
	}
}

func (s *TableService) tablesOf(reservationID string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.held[reservationID])
}

// Occupant returns the reservation seated at table, or "" when it is free.
func (s *TableService) Occupant(ctx context.Context, table int) (string, error) {
	var occupant string
	err := s.locks.TryWithLocks(ctx, []int{table}, s.cfg.LockTimeout, func() error {
		occupant = s.occupants[table]
		return nil
	})
	return occupant, err
}

func (s *TableService) Tables() int { return s.cfg.Tables }
