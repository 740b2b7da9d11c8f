package guard

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/salamalimosawi/Restaurant-CSSD2101/internal/apperr"
)

type Registry[T any] struct {
	repo Repository[T]
	opts []Option

	mu     sync.RWMutex
	guards map[string]*Guard[T]
	loads  singleflight.Group
}

func NewRegistry[T any](repo Repository[T], opts ...Option) *Registry[T] {
	return &Registry[T]{
		repo:   repo,
		opts:   opts,
		guards: make(map[string]*Guard[T]),
	}
}

// Create persists a new record and binds its guard. An existing guard for id
// is replaced.
func (r *Registry[T]) Create(ctx context.Context, id string, rec T) (*Guard[T], error) {
	if err := r.repo.Save(ctx, rec); err != nil {
		return nil, apperr.Wrap(err, "guard.Create", id)
	}
	g := New(id, rec, r.repo, r.opts...)

	r.mu.Lock()
	r.guards[id] = g
	r.mu.Unlock()
	return g, nil
}

// Get returns the guard bound to id, loading the record on first use.
func (r *Registry[T]) Get(ctx context.Context, id string) (*Guard[T], error) {
	r.mu.RLock()
	g, exists := r.guards[id]
	r.mu.RUnlock()
	if exists {
		return g, nil
	}

	v, err, _ := r.loads.Do(id, func() (interface{}, error) {
		r.mu.RLock()
		g, exists := r.guards[id]
		r.mu.RUnlock()
		if exists {
			return g, nil
		}

		rec, err := r.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		g = New(id, rec, r.repo, r.opts...)

		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.guards[id]; ok {
			return existing, nil
		}
		r.guards[id] = g
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Guard[T]), nil
}

func (r *Registry[T]) Delete(id string) {
	r.mu.Lock()
	delete(r.guards, id)
	r.mu.Unlock()
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.guards)
}

// IDs lists the bound record ids in ascending order.
func (r *Registry[T]) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.guards))
	for id := range r.guards {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
