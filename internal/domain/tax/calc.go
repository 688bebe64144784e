package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/ruleset"
)

// Calculate derives every statutory withholding for one pay period. Pure:
// the only inputs are the arguments, the only output is the Result.
//
// Intermediate bracket sums keep full precision; each output is rounded to
// the nearest cent (half up) exactly once, at the end.
func Calculate(in CalcInput) (Result, error) {
	if in.Gross.IsNegative() || in.FICAWages.IsNegative() || in.IncomeWages.IsNegative() {
		return Result{}, ErrNegativeGross
	}
	if !in.Frequency.Valid() {
		return Result{}, fmt.Errorf("%q: %w", in.Frequency, ErrInvalidFrequency)
	}
	if in.Rules.Federal == nil {
		return Result{}, fmt.Errorf("federal withholding: %w", ErrMissingRules)
	}
	if in.Rules.FICA == nil {
		return Result{}, fmt.Errorf("fica: %w", ErrMissingRules)
	}

	periods := decimal.NewFromInt(in.Frequency.PeriodsPerYear())
	status := string(in.Profile.FilingStatus)

	var federal, state, local decimal.Decimal
	if !in.Profile.Exempt {
		federal = incomeTax(*in.Rules.Federal, status, in.Profile.Dependents, in.IncomeWages, periods)
		federal = federal.Add(in.Profile.AdditionalWithholding)
		// Withholding is taken from wages; it cannot exceed them.
		if federal.GreaterThan(in.IncomeWages) {
			federal = in.IncomeWages
		}
		if in.Rules.State != nil {
			state = incomeTax(*in.Rules.State, status, in.Profile.Dependents, in.IncomeWages, periods)
		}
		if in.Rules.Local != nil {
			local = incomeTax(*in.Rules.Local, status, in.Profile.Dependents, in.IncomeWages, periods)
		}
	}

	fica := *in.Rules.FICA

	ssRemaining := fica.SocialSecurityWageBase.Sub(in.YTD.SocialSecurityWages)
	if ssRemaining.IsNegative() {
		ssRemaining = decimal.Zero
	}
	ssWages := decimal.Min(in.FICAWages, ssRemaining)
	socialSecurity := ssWages.Mul(fica.SocialSecurityRate)

	medicare := in.FICAWages.Mul(fica.MedicareRate)

	// Additional medicare kicks in once cumulative wages cross the annual
	// threshold; only the excess portion of the crossing period is taxed.
	additionalMedicare := decimal.Zero
	overThreshold := in.YTD.Gross.Add(in.FICAWages).Sub(fica.AdditionalMedicareThreshold)
	if overThreshold.IsPositive() {
		portion := decimal.Min(in.FICAWages, overThreshold)
		additionalMedicare = portion.Mul(fica.AdditionalMedicareRate)
	}

	sdi := decimal.Zero
	if in.Rules.State != nil && in.Rules.State.SDIRate.IsPositive() {
		sdi = in.FICAWages.Mul(in.Rules.State.SDIRate)
	}

	futa := wageBaseTax(in.FICAWages, in.YTD.Gross, fica.FUTAWageBase, fica.FUTARate)
	suta := wageBaseTax(in.FICAWages, in.YTD.Gross, fica.SUTAWageBase, fica.SUTARate)

	return Result{
		Federal:             roundCents(federal),
		State:               roundCents(state),
		Local:               roundCents(local),
		SocialSecurity:      roundCents(socialSecurity),
		Medicare:            roundCents(medicare),
		AdditionalMedicare:  roundCents(additionalMedicare),
		SDI:                 roundCents(sdi),
		EmployerFUTA:        roundCents(futa),
		EmployerSUTA:        roundCents(suta),
		SocialSecurityWages: ssWages,
	}, nil
}

// incomeTax runs one jurisdiction's rules against per-period wages: either
// a flat rate applied directly, or annualize, subtract the standard
// deduction and dependent credits, walk the marginal brackets, and scale
// the annual tax back down to the period.
func incomeTax(rules ruleset.IncomeTaxRules, status string, dependents int, periodWages, periods decimal.Decimal) decimal.Decimal {
	if rules.FlatRate != nil {
		return periodWages.Mul(*rules.FlatRate)
	}

	annual := periodWages.Mul(periods)
	if sd, ok := rules.StandardDeduction[status]; ok {
		annual = annual.Sub(sd)
	}
	if dependents > 0 && rules.DependentCredit.IsPositive() {
		annual = annual.Sub(rules.DependentCredit.Mul(decimal.NewFromInt(int64(dependents))))
	}
	if annual.IsNegative() {
		return decimal.Zero
	}

	annualTax := bracketTax(rules.Brackets[status], annual)
	return annualTax.Div(periods)
}

// bracketTax sums rate * income-within-bracket across a progressive table.
func bracketTax(brackets []ruleset.Bracket, taxable decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, b := range brackets {
		if taxable.LessThanOrEqual(b.Lower) {
			break
		}
		top := taxable
		if b.Upper != nil && top.GreaterThan(*b.Upper) {
			top = *b.Upper
		}
		total = total.Add(top.Sub(b.Lower).Mul(b.Rate))
	}
	return total
}

// wageBaseTax taxes the portion of this period's wages that still fits
// under an annual wage base; a zero base means the tax does not apply.
func wageBaseTax(wages, ytdWages, base, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() || base.IsZero() {
		return decimal.Zero
	}
	remaining := base.Sub(ytdWages)
	if !remaining.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(wages, remaining).Mul(rate)
}

// roundCents rounds half-up to two decimal places. decimal.Round rounds
// half away from zero, which is half-up for the non-negative amounts the
// engine produces.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
