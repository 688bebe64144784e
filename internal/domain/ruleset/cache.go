package ruleset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type cacheEntry struct {
	rs      RuleSet
	fetched time.Time
}

// CachedProvider wraps a Provider with a TTL read cache and a per-call
// timeout. Rule lookups sit on the hot path of every employee computation,
// so the underlying provider (possibly remote) must never be able to hang a
// payroll run: deadline expiry surfaces as the not-found error class.
type CachedProvider struct {
	inner   Provider
	ttl     time.Duration
	timeout time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func NewCachedProvider(inner Provider, ttl, timeout time.Duration) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		ttl:     ttl,
		timeout: timeout,
		cache:   map[string]cacheEntry{},
	}
}

func (c *CachedProvider) Active(ctx context.Context, key, jurisdiction string, asOf time.Time) (RuleSet, error) {
	// Cache on the day, not the instant: rule windows have date precision.
	cacheKey := key + "|" + jurisdiction + "|" + asOf.Format("2006-01-02")

	c.mu.RLock()
	entry, ok := c.cache[cacheKey]
	c.mu.RUnlock()
	if ok && time.Since(entry.fetched) < c.ttl {
		return entry.rs, nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rs, err := c.inner.Active(ctx, key, jurisdiction, asOf)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return RuleSet{}, fmt.Errorf("ruleset lookup %s/%s timed out: %w", key, jurisdiction, ErrNotFound)
		}
		return RuleSet{}, err
	}

	c.mu.Lock()
	c.cache[cacheKey] = cacheEntry{rs: rs, fetched: time.Now()}
	c.mu.Unlock()
	return rs, nil
}
