package ruleset

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemoryStore holds rulesets in memory. Used as the fixture provider in
// tests and for running the engine without a database.
type MemoryStore struct {
	mu   sync.RWMutex
	sets []RuleSet
	next int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{next: 1}
}

func (m *MemoryStore) Active(_ context.Context, key, jurisdiction string, asOf time.Time) (RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *RuleSet
	for i := range m.sets {
		rs := &m.sets[i]
		if rs.Key != key || rs.Jurisdiction != jurisdiction || !rs.Covers(asOf) {
			continue
		}
		if best == nil || rs.EffectiveStart.After(best.EffectiveStart) {
			best = rs
		}
	}
	if best == nil {
		return RuleSet{}, fmt.Errorf("%s/%s as of %s: %w", key, jurisdiction, asOf.Format("2006-01-02"), ErrNotFound)
	}
	return *best, nil
}

func (m *MemoryStore) Create(_ context.Context, rs RuleSet) (string, error) {
	if err := validate(rs); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	version := 0
	for _, existing := range m.sets {
		if existing.Key != rs.Key || existing.Jurisdiction != rs.Jurisdiction {
			continue
		}
		if overlaps(existing, rs) {
			return "", fmt.Errorf("%s/%s: %w", rs.Key, rs.Jurisdiction, ErrOverlap)
		}
		if existing.Version > version {
			version = existing.Version
		}
	}

	rs.ID = "rs-" + strconv.Itoa(m.next)
	rs.Version = version + 1
	rs.CreatedAt = time.Now().UTC()
	m.next++
	m.sets = append(m.sets, rs)
	return rs.ID, nil
}

func (m *MemoryStore) List(_ context.Context, key, jurisdiction string) ([]RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RuleSet
	for _, rs := range m.sets {
		if key != "" && rs.Key != key {
			continue
		}
		if jurisdiction != "" && rs.Jurisdiction != jurisdiction {
			continue
		}
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		if out[i].Jurisdiction != out[j].Jurisdiction {
			return out[i].Jurisdiction < out[j].Jurisdiction
		}
		return out[i].EffectiveStart.After(out[j].EffectiveStart)
	})
	return out, nil
}

func overlaps(a, b RuleSet) bool {
	if b.EffectiveEnd != nil && b.EffectiveEnd.Before(a.EffectiveStart) {
		return false
	}
	if a.EffectiveEnd != nil && a.EffectiveEnd.Before(b.EffectiveStart) {
		return false
	}
	return true
}
