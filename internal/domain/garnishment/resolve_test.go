package garnishment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/tax"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rules() ruleset.GarnishmentRules {
	return ruleset.GarnishmentRules{
		FederalMinimumWage:     d("7.25"),
		GeneralCapPercent:      d("0.25"),
		ChildSupportCapPercent: d("0.60"),
		StudentLoanCapPercent:  d("0.15"),
		LevyExempt: map[string]ruleset.LevyExemption{
			"single": {Base: d("15600"), PerDependent: d("5200")},
		},
	}
}

func weekly(disposable string, orders ...Order) ResolveInput {
	return ResolveInput{
		Disposable:   d(disposable),
		Frequency:    tax.FrequencyWeekly,
		FilingStatus: tax.FilingSingle,
		Orders:       orders,
		Rules:        rules(),
	}
}

func creditor(id string, priority int, amount string) Order {
	return Order{
		ID: id, Type: TypeCreditor, Priority: priority,
		AmountType: AmountFixed, AmountValue: d(amount),
		Payee: "acme collections", Active: true,
	}
}

func TestResolveCreditorGeneralCap(t *testing.T) {
	got, err := Resolve(weekly("1000", creditor("g-1", 5, "400")))
	require.NoError(t, err)
	require.Len(t, got, 1)

	// 25% of disposable beats the minimum-wage floor test: min(250, 782.50).
	require.Equal(t, "250.00", got[0].Withheld.StringFixed(2))
	require.Equal(t, "150.00", got[0].Shortfall.StringFixed(2))
}

func TestResolveMinimumWageFloor(t *testing.T) {
	// Low disposable: only the excess over 30x the weekly minimum wage is
	// reachable. 240 - 217.50 = 22.50, under the 25% cap of 60.
	got, err := Resolve(weekly("240", creditor("g-1", 5, "100")))
	require.NoError(t, err)
	require.Equal(t, "22.50", got[0].Withheld.StringFixed(2))

	got, err = Resolve(weekly("200", creditor("g-1", 5, "100")))
	require.NoError(t, err)
	require.True(t, got[0].Withheld.IsZero())
	require.Equal(t, "100.00", got[0].Shortfall.StringFixed(2))
}

func TestResolveFloorScalesWithFrequency(t *testing.T) {
	in := weekly("1000", creditor("g-1", 5, "400"))
	in.Frequency = tax.FrequencyBiweekly

	// Two weeks of protected wages: floor 435, excess 565, percent cap 250.
	got, err := Resolve(in)
	require.NoError(t, err)
	require.Equal(t, "250.00", got[0].Withheld.StringFixed(2))
}

func TestResolveChildSupportCap(t *testing.T) {
	got, err := Resolve(weekly("1000", Order{
		ID: "cs-1", Type: TypeChildSupport, Priority: 1,
		AmountType: AmountPercentDisposable, AmountValue: d("0.5"),
		Payee: "state disbursement unit", Active: true,
	}))
	require.NoError(t, err)
	require.Equal(t, "500.00", got[0].Withheld.StringFixed(2))

	got, err = Resolve(weekly("1000", Order{
		ID: "cs-1", Type: TypeChildSupport, Priority: 1,
		AmountType: AmountFixed, AmountValue: d("700"),
		Payee: "state disbursement unit", Active: true,
	}))
	require.NoError(t, err)
	require.Equal(t, "600.00", got[0].Withheld.StringFixed(2))
	require.Equal(t, "100.00", got[0].Shortfall.StringFixed(2))
}

func TestResolvePriorityConsumesLowerCeilings(t *testing.T) {
	got, err := Resolve(weekly("1000",
		creditor("g-1", 5, "100"),
		Order{
			ID: "cs-1", Type: TypeChildSupport, Priority: 1,
			AmountType: AmountFixed, AmountValue: d("600"),
			Payee: "state disbursement unit", Active: true,
		},
	))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Child support takes its full 600; the creditor's 250 general ceiling
	// is already exhausted by it.
	require.Equal(t, "cs-1", got[0].OrderID)
	require.Equal(t, "600.00", got[0].Withheld.StringFixed(2))
	require.Equal(t, "g-1", got[1].OrderID)
	require.True(t, got[1].Withheld.IsZero())
	require.Equal(t, "100.00", got[1].Shortfall.StringFixed(2))
}

func TestResolveStudentLoanCap(t *testing.T) {
	got, err := Resolve(weekly("1000", Order{
		ID: "sl-1", Type: TypeStudentLoan, Priority: 4,
		AmountType: AmountFixed, AmountValue: d("300"),
		Payee: "dept of education", Active: true,
	}))
	require.NoError(t, err)
	require.Equal(t, "150.00", got[0].Withheld.StringFixed(2))
}

func TestResolveIRSLevyExemption(t *testing.T) {
	in := weekly("1000", Order{
		ID: "levy-1", Type: TypeIRSLevy, Priority: 2,
		AmountType: AmountIRSTable,
		Payee: "irs", Active: true,
	})
	in.Dependents = 2

	// (15600 + 2*5200) / 52 weeks = 500 exempt per period.
	got, err := Resolve(in)
	require.NoError(t, err)
	require.Equal(t, "500.00", got[0].Withheld.StringFixed(2))

	in.Disposable = d("400")
	got, err = Resolve(in)
	require.NoError(t, err)
	require.True(t, got[0].Withheld.IsZero())
}

func TestResolveDeterministicTieBreak(t *testing.T) {
	a := creditor("g-a", 5, "100")
	b := creditor("g-b", 5, "100")

	first, err := Resolve(weekly("1000", b, a))
	require.NoError(t, err)
	second, err := Resolve(weekly("1000", a, b))
	require.NoError(t, err)

	// Same priority resolves by order ID regardless of input order.
	require.Equal(t, "g-a", first[0].OrderID)
	require.Equal(t, first, second)
}

func TestResolveExclusivePriorityConflict(t *testing.T) {
	_, err := Resolve(weekly("1000",
		creditor("g-1", 2, "100"),
		Order{
			ID: "levy-1", Type: TypeIRSLevy, Priority: 2,
			AmountType: AmountIRSTable, Payee: "irs", Active: true,
		},
	))
	require.ErrorIs(t, err, ErrInvalidPriority)

	// The conflict disappears once the creditor order is inactive.
	inactive := creditor("g-1", 2, "100")
	inactive.Active = false
	_, err = Resolve(weekly("1000",
		inactive,
		Order{
			ID: "levy-1", Type: TypeIRSLevy, Priority: 2,
			AmountType: AmountIRSTable, Payee: "irs", Active: true,
		},
	))
	require.NoError(t, err)
}

func TestResolveSkipsInactiveOrders(t *testing.T) {
	inactive := creditor("g-1", 5, "100")
	inactive.Active = false

	got, err := Resolve(weekly("1000", inactive))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestResolveNegativeDisposable(t *testing.T) {
	_, err := Resolve(weekly("-1"))
	require.ErrorIs(t, err, ErrNegativeDisposable)
}

func TestResolveTotalNeverExceedsDisposable(t *testing.T) {
	got, err := Resolve(weekly("100",
		Order{
			ID: "cs-1", Type: TypeChildSupport, Priority: 1,
			AmountType: AmountFixed, AmountValue: d("90"),
			Payee: "state disbursement unit", Active: true,
		},
		Order{
			ID: "sl-1", Type: TypeStudentLoan, Priority: 4,
			AmountType: AmountFixed, AmountValue: d("50"),
			Payee: "dept of education", Active: true,
		},
	))
	require.NoError(t, err)

	total := decimal.Zero
	for _, w := range got {
		total = total.Add(w.Withheld)
	}
	require.True(t, total.LessThanOrEqual(d("100")), "total %s", total)
}
