package audit

import (
	"context"
	"sync"
	"time"
)

type Memory struct {
	now func() time.Time

	mu      sync.RWMutex
	entries []Entry
}

func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{now: o.now}
}

func (m *Memory) Append(ctx context.Context, e Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e = seal(e, m.tailLocked(), m.now)
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *Memory) TailHash(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tailLocked(), nil
}

func (m *Memory) tailLocked() string {
	if len(m.entries) == 0 {
		return Genesis
	}
	return m.entries[len(m.entries)-1].Hash
}

func (m *Memory) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, len(m.entries))
	copy(entries, m.entries)
	return entries
}

func (m *Memory) Verify() bool {
	return VerifyChain(m.Entries())
}
