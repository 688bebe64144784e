package garnishment

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/ruleset"
)

var weeksPerYear = decimal.NewFromInt(52)

// Resolve orders the active garnishments by priority and withholds against
// disposable earnings under the protected-earnings rules. Deterministic:
// stable sort with the order ID as tie-break, no hidden state.
//
// Each order type draws against its own statutory ceiling, all computed
// from the same disposable figure:
//
//	creditor           CCPA general cap: lesser of the general percent of
//	                   disposable or the excess over 30x the federal
//	                   minimum weekly wage, scaled to the pay period
//	child_support      higher percent of disposable (its own cap class)
//	bankruptcy         shares the child-support cap class
//	student_loan       its own percent of disposable
//	irs_levy           disposable minus the per-period levy exemption for
//	                   the filing status and dependent count
//
// Withholding already taken by higher-priority orders counts against every
// later order's ceiling, and the total never exceeds disposable.
func Resolve(in ResolveInput) ([]Withholding, error) {
	if in.Disposable.IsNegative() {
		return nil, ErrNegativeDisposable
	}

	active := make([]Order, 0, len(in.Orders))
	for _, o := range in.Orders {
		if o.Active {
			active = append(active, o)
		}
	}
	if err := checkPriorities(active); err != nil {
		return nil, err
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].ID < active[j].ID
	})

	periodsPerYear := decimal.NewFromInt(in.Frequency.PeriodsPerYear())
	weeksPerPeriod := weeksPerYear.Div(periodsPerYear)

	generalMax := generalGarnishable(in.Disposable, weeksPerPeriod, in.Rules)
	withheldTotal := decimal.Zero

	out := make([]Withholding, 0, len(active))
	for _, o := range active {
		target := targetAmount(o, in, periodsPerYear)

		ceiling := orderCeiling(o.Type, in, generalMax, periodsPerYear)
		room := ceiling.Sub(withheldTotal)
		if room.IsNegative() {
			room = decimal.Zero
		}
		if overall := in.Disposable.Sub(withheldTotal); room.GreaterThan(overall) {
			room = overall
		}

		withheld := decimal.Min(target, room)
		if withheld.IsNegative() {
			withheld = decimal.Zero
		}
		withheld = withheld.Round(2)
		withheldTotal = withheldTotal.Add(withheld)

		out = append(out, Withholding{
			OrderID:   o.ID,
			Payee:     o.Payee,
			Withheld:  withheld,
			Shortfall: target.Round(2).Sub(withheld),
		})
	}
	return out, nil
}

// checkPriorities rejects configurations where an exclusive-type order
// shares its priority slot with any other active order.
func checkPriorities(orders []Order) error {
	byPriority := map[int][]Order{}
	for _, o := range orders {
		byPriority[o.Priority] = append(byPriority[o.Priority], o)
	}
	for priority, slot := range byPriority {
		if len(slot) < 2 {
			continue
		}
		for _, o := range slot {
			if o.Type.exclusive() {
				return fmt.Errorf("priority %d held by %s order %s: %w", priority, o.Type, o.ID, ErrInvalidPriority)
			}
		}
	}
	return nil
}

// generalGarnishable is the CCPA default pool: the lesser of the general
// cap percent of disposable earnings, or the amount by which disposable
// earnings exceed 30x the federal minimum hourly wage per week.
func generalGarnishable(disposable, weeksPerPeriod decimal.Decimal, rules ruleset.GarnishmentRules) decimal.Decimal {
	percentCap := disposable.Mul(rules.GeneralCapPercent)
	wageFloor := rules.FederalMinimumWage.Mul(decimal.NewFromInt(30)).Mul(weeksPerPeriod)
	excess := disposable.Sub(wageFloor)
	if excess.IsNegative() {
		excess = decimal.Zero
	}
	return decimal.Min(percentCap, excess)
}

func targetAmount(o Order, in ResolveInput, periodsPerYear decimal.Decimal) decimal.Decimal {
	switch o.AmountType {
	case AmountFixed:
		return o.AmountValue
	case AmountPercentDisposable:
		return in.Disposable.Mul(o.AmountValue)
	case AmountIRSTable:
		exempt := levyExemptPerPeriod(in, periodsPerYear)
		target := in.Disposable.Sub(exempt)
		if target.IsNegative() {
			return decimal.Zero
		}
		return target
	}
	return decimal.Zero
}

func orderCeiling(t Type, in ResolveInput, generalMax, periodsPerYear decimal.Decimal) decimal.Decimal {
	switch t {
	case TypeChildSupport, TypeBankruptcy:
		return in.Disposable.Mul(in.Rules.ChildSupportCapPercent)
	case TypeStudentLoan:
		return in.Disposable.Mul(in.Rules.StudentLoanCapPercent)
	case TypeIRSLevy:
		ceiling := in.Disposable.Sub(levyExemptPerPeriod(in, periodsPerYear))
		if ceiling.IsNegative() {
			return decimal.Zero
		}
		return ceiling
	}
	return generalMax
}

// levyExemptPerPeriod scales the annual levy exemption for the filing
// status and dependent count down to the pay period.
func levyExemptPerPeriod(in ResolveInput, periodsPerYear decimal.Decimal) decimal.Decimal {
	exemption, ok := in.Rules.LevyExempt[string(in.FilingStatus)]
	if !ok {
		return decimal.Zero
	}
	annual := exemption.Base.Add(exemption.PerDependent.Mul(decimal.NewFromInt(int64(in.Dependents))))
	return annual.Div(periodsPerYear)
}
