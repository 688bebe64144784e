package ytd

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps accumulators in memory. Used in tests and as the
// backing store when running the engine without a database.
type MemoryStore struct {
	mu   sync.Mutex
	accs map[string]Accumulator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accs: map[string]Accumulator{}}
}

func memKey(employeeID string, year int) string {
	return fmt.Sprintf("%s|%d", employeeID, year)
}

func (m *MemoryStore) Get(_ context.Context, employeeID string, year int) (Accumulator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accs[memKey(employeeID, year)]; ok {
		return acc, nil
	}
	return New(employeeID, year), nil
}

func (m *MemoryStore) Apply(_ context.Context, employeeID string, year int, delta Delta) (Accumulator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(employeeID, year)
	current, ok := m.accs[key]
	if !ok {
		current = New(employeeID, year)
	}
	updated := current.Add(delta)
	m.accs[key] = updated
	return updated, nil
}
