package payrun

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory StoreAPI for tests and fixtures.
type MemoryStore struct {
	mu      sync.Mutex
	runs    map[string]Run
	members map[string][]string
	results map[string]map[string]EmployeeResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    map[string]Run{},
		members: map[string][]string{},
		results: map[string]map[string]EmployeeResult{},
	}
}

func (m *MemoryStore) Create(_ context.Context, run Run) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = uuid.NewString()
	run.Status = StatusDraft
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	m.runs[run.ID] = run
	return run.ID, nil
}

func (m *MemoryStore) Get(_ context.Context, runID string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

func (m *MemoryStore) List(_ context.Context, limit, offset int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Run, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Transition(_ context.Context, runID string, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidState)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrNotFound
	}
	if run.Status != from {
		return fmt.Errorf("run is %s, expected %s: %w", run.Status, from, ErrInvalidState)
	}
	run.Status = to
	run.UpdatedAt = time.Now()
	m.runs[runID] = run
	return nil
}

func (m *MemoryStore) MarkFailed(_ context.Context, runID, employeeID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrNotFound
	}
	if run.Status != StatusProcessing {
		return fmt.Errorf("mark failed: %w", ErrInvalidState)
	}
	run.Status = StatusFailed
	run.FailedEmployeeID = employeeID
	run.FailureReason = reason
	run.UpdatedAt = time.Now()
	m.runs[runID] = run
	return nil
}

func (m *MemoryStore) AddMember(_ context.Context, runID, employeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrNotFound
	}
	if run.Status != StatusDraft {
		return fmt.Errorf("run is %s: %w", run.Status, ErrNotDraft)
	}
	for _, id := range m.members[runID] {
		if id == employeeID {
			return nil
		}
	}
	m.members[runID] = append(m.members[runID], employeeID)
	return nil
}

func (m *MemoryStore) RemoveMember(_ context.Context, runID, employeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrNotFound
	}
	if run.Status != StatusDraft {
		return fmt.Errorf("run is %s: %w", run.Status, ErrNotDraft)
	}
	ids := m.members[runID]
	for i, id := range ids {
		if id == employeeID {
			m.members[runID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) ListMembers(_ context.Context, runID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.members[runID]...)
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) SaveResult(_ context.Context, result EmployeeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byEmployee, ok := m.results[result.RunID]
	if !ok {
		byEmployee = map[string]EmployeeResult{}
		m.results[result.RunID] = byEmployee
	}
	byEmployee[result.EmployeeID] = result
	return nil
}

func (m *MemoryStore) ListResults(_ context.Context, runID string) ([]EmployeeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byEmployee := m.results[runID]
	out := make([]EmployeeResult, 0, len(byEmployee))
	for _, result := range byEmployee {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *MemoryStore) SaveTotals(_ context.Context, runID string, totals Totals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Totals = &totals
	run.UpdatedAt = time.Now()
	m.runs[runID] = run
	return nil
}
