package ytd

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAccumulatorAdd(t *testing.T) {
	acc := New("emp-1", 2026)

	acc = acc.Add(Delta{
		Gross:               d("5000"),
		SocialSecurityWages: d("4800"),
		Contribution401k:    d("500"),
		GarnishmentWithheld: map[string]decimal.Decimal{"g-1": d("100")},
	})
	acc = acc.Add(Delta{
		Gross:               d("5000"),
		SocialSecurityWages: d("4800"),
		ContributionHSA:     d("150"),
		GarnishmentWithheld: map[string]decimal.Decimal{"g-1": d("100"), "g-2": d("50")},
	})

	require.Equal(t, "10000", acc.Gross.String())
	require.Equal(t, "9600", acc.SocialSecurityWages.String())
	require.Equal(t, "500", acc.Contribution401k.String())
	require.Equal(t, "150", acc.ContributionHSA.String())
	require.Equal(t, "200", acc.GarnishmentWithheld["g-1"].String())
	require.Equal(t, "50", acc.GarnishmentWithheld["g-2"].String())
}

func TestMemoryStoreApply(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Unknown employees read as zeroed accumulators, not errors.
	acc, err := store.Get(ctx, "emp-1", 2026)
	require.NoError(t, err)
	require.True(t, acc.Gross.IsZero())

	updated, err := store.Apply(ctx, "emp-1", 2026, Delta{Gross: d("5000")})
	require.NoError(t, err)
	require.Equal(t, "5000", updated.Gross.String())

	// Years accumulate independently.
	_, err = store.Apply(ctx, "emp-1", 2025, Delta{Gross: d("1000")})
	require.NoError(t, err)
	acc, err = store.Get(ctx, "emp-1", 2026)
	require.NoError(t, err)
	require.Equal(t, "5000", acc.Gross.String())
}
