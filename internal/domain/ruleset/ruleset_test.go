package ruleset

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func ficaSet(start time.Time, end *time.Time, base string) RuleSet {
	payload, _ := json.Marshal(map[string]string{
		"socialSecurityRate":     "0.062",
		"socialSecurityWageBase": base,
		"medicareRate":           "0.0145",
	})
	return RuleSet{
		Key:            KeyFICA,
		Jurisdiction:   "US",
		RuleType:       TypeFICA,
		EffectiveStart: start,
		EffectiveEnd:   end,
		Payload:        payload,
	}
}

func TestMemoryStoreActiveSelection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	end2025 := day(2025, 12, 31)
	_, err := store.Create(ctx, ficaSet(day(2025, 1, 1), &end2025, "176100"))
	require.NoError(t, err)
	_, err = store.Create(ctx, ficaSet(day(2026, 1, 1), nil, "181200"))
	require.NoError(t, err)

	got, err := store.Active(ctx, KeyFICA, "US", day(2025, 6, 15))
	require.NoError(t, err)
	require.Equal(t, 1, got.Version)

	got, err = store.Active(ctx, KeyFICA, "US", day(2026, 6, 15))
	require.NoError(t, err)
	require.Equal(t, 2, got.Version)

	rules, err := got.FICARules()
	require.NoError(t, err)
	require.Equal(t, "181200", rules.SocialSecurityWageBase.String())

	_, err = store.Active(ctx, KeyFICA, "US", day(2024, 6, 15))
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Active(ctx, KeyFICA, "CA", day(2026, 6, 15))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreWindowBoundaries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	end := day(2026, 6, 30)
	_, err := store.Create(ctx, ficaSet(day(2026, 1, 1), &end, "181200"))
	require.NoError(t, err)

	// Both endpoints are inclusive.
	_, err = store.Active(ctx, KeyFICA, "US", day(2026, 1, 1))
	require.NoError(t, err)
	_, err = store.Active(ctx, KeyFICA, "US", day(2026, 6, 30))
	require.NoError(t, err)
	_, err = store.Active(ctx, KeyFICA, "US", day(2026, 7, 1))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Create(ctx, ficaSet(day(2026, 1, 1), nil, "181200"))
	require.NoError(t, err)

	// An open-ended window collides with anything starting later.
	_, err = store.Create(ctx, ficaSet(day(2026, 7, 1), nil, "185000"))
	require.ErrorIs(t, err, ErrOverlap)

	// A different jurisdiction is a separate timeline.
	other := ficaSet(day(2026, 1, 1), nil, "181200")
	other.Jurisdiction = "CA"
	_, err = store.Create(ctx, other)
	require.NoError(t, err)
}

func TestMemoryStoreRejectsBadPayload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rs := ficaSet(day(2026, 1, 1), nil, "181200")
	rs.Payload = json.RawMessage(`{"socialSecurityRate": "not a number"}`)
	_, err := store.Create(ctx, rs)
	require.ErrorIs(t, err, ErrInvalidPayload)

	rs = ficaSet(day(2026, 1, 1), nil, "181200")
	rs.RuleType = "mystery"
	_, err = store.Create(ctx, rs)
	require.ErrorIs(t, err, ErrInvalidPayload)

	rs = ficaSet(day(2026, 6, 1), nil, "181200")
	end := day(2026, 1, 1)
	rs.EffectiveEnd = &end
	_, err = store.Create(ctx, rs)
	require.ErrorIs(t, err, ErrInvalidWindow)
}

// countingProvider records lookups so cache hits are observable.
type countingProvider struct {
	inner Provider
	calls int
}

func (c *countingProvider) Active(ctx context.Context, key, jurisdiction string, asOf time.Time) (RuleSet, error) {
	c.calls++
	return c.inner.Active(ctx, key, jurisdiction, asOf)
}

func TestCachedProviderServesFromCache(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Create(ctx, ficaSet(day(2026, 1, 1), nil, "181200"))
	require.NoError(t, err)

	counting := &countingProvider{inner: store}
	cached := NewCachedProvider(counting, time.Minute, time.Second)

	for i := 0; i < 3; i++ {
		_, err := cached.Active(ctx, KeyFICA, "US", day(2026, 3, 1))
		require.NoError(t, err)
	}
	require.Equal(t, 1, counting.calls)

	// A different as-of day is a different cache entry.
	_, err = cached.Active(ctx, KeyFICA, "US", day(2026, 3, 2))
	require.NoError(t, err)
	require.Equal(t, 2, counting.calls)
}

// stalledProvider blocks until its context is cancelled.
type stalledProvider struct{}

func (stalledProvider) Active(ctx context.Context, _, _ string, _ time.Time) (RuleSet, error) {
	<-ctx.Done()
	return RuleSet{}, ctx.Err()
}

func TestCachedProviderTimeoutIsNotFound(t *testing.T) {
	cached := NewCachedProvider(stalledProvider{}, time.Minute, 10*time.Millisecond)

	_, err := cached.Active(context.Background(), KeyFICA, "US", day(2026, 3, 1))
	require.ErrorIs(t, err, ErrNotFound)
}
