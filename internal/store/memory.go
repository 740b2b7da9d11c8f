// Package store holds the repository adapters that guards load records from
// and persist records to.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

// Keyed is any record that knows its own identifier.
type Keyed interface {
	Key() string
}

type Memory[T Keyed] struct {
	mu      sync.RWMutex
	records map[string]T
}

func NewMemory[T Keyed](records ...T) *Memory[T] {
	m := &Memory[T]{records: make(map[string]T, len(records))}
	for _, rec := range records {
		m.records[rec.Key()] = rec
	}
	return m
}

func (m *Memory[T]) FindByID(ctx context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, exists := m.records[id]
	if !exists {
		var zero T
		return zero, apperr.Errorf(apperr.ErrNotFound, "store.FindByID", id, "record not found: %s", id)
	}
	return rec, nil
}

func (m *Memory[T]) Save(ctx context.Context, rec T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.records[rec.Key()] = rec
	m.mu.Unlock()
	return nil
}

func (m *Memory[T]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; !exists {
		return apperr.Errorf(apperr.ErrNotFound, "store.Delete", id, "record not found: %s", id)
	}
	delete(m.records, id)
	return nil
}

// List returns every record ordered by key.
func (m *Memory[T]) List(ctx context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]T, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key() < records[j].Key() })
	return records, nil
}
