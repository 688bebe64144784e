package ruleset

import (
	"context"
	"time"
)

// Provider resolves the single active ruleset for (key, jurisdiction) at a
// date: the version with the latest effective_start <= asOf whose
// effective_end is null or >= asOf. Returns ErrNotFound when no window
// covers the date.
type Provider interface {
	Active(ctx context.Context, key, jurisdiction string, asOf time.Time) (RuleSet, error)
}

// StoreAPI is the persistence surface for ruleset administration. Issued
// versions are immutable; there is deliberately no update or delete.
type StoreAPI interface {
	Provider
	Create(ctx context.Context, rs RuleSet) (string, error)
	List(ctx context.Context, key, jurisdiction string) ([]RuleSet, error)
}
