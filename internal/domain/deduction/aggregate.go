package deduction

import (
	"github.com/shopspring/decimal"

	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/ytd"
)

// ApplyPreTax withholds pre-tax deductions from gross in list order and
// returns the two tax bases. Contributions with an annual limit are capped
// at the remainder left in the YTD accumulator; the excess is reported on
// the item and stays taxable. Post-tax items in the list are ignored.
//
// Neither base ever goes below zero, and total pre-tax withholding never
// exceeds gross.
func ApplyPreTax(gross decimal.Decimal, deductions []Deduction, y ytd.Accumulator, limits ruleset.BenefitLimitRules) PreTaxResult {
	out := PreTaxResult{
		FICABase:   gross,
		IncomeBase: gross,
		Total:      decimal.Zero,
	}

	remaining := remainingLimits(y, limits)
	available := gross

	for _, d := range deductions {
		if !d.Category.PreTax() || !d.Amount.IsPositive() {
			continue
		}

		applied := d.Amount
		if room, capped := remaining[d.Category]; capped {
			applied = decimal.Min(applied, room)
		}
		applied = decimal.Min(applied, available)
		if applied.IsNegative() {
			applied = decimal.Zero
		}

		if room, capped := remaining[d.Category]; capped {
			remaining[d.Category] = room.Sub(applied)
		}
		available = available.Sub(applied)

		out.IncomeBase = out.IncomeBase.Sub(applied)
		if d.Category.reducesFICABase() {
			out.FICABase = out.FICABase.Sub(applied)
		}
		out.Total = out.Total.Add(applied)
		out.Applied = append(out.Applied, Applied{
			Category:  d.Category,
			Requested: d.Amount,
			Applied:   applied,
			Excess:    d.Amount.Sub(applied),
		})
	}

	return out
}

// ApplyPostTax withholds post-tax deductions from the available net amount
// in list order. Roth 401k shares the 401k annual limit with traditional
// deferrals; an over-limit request is capped, never rejected. Items are
// also capped at the remaining net so a deduction alone cannot drive net
// pay negative.
func ApplyPostTax(available decimal.Decimal, deductions []Deduction, y ytd.Accumulator, limits ruleset.BenefitLimitRules) PostTaxResult {
	out := PostTaxResult{Total: decimal.Zero}

	remaining401k := limits.Limit401k.Sub(y.Contribution401k)
	if remaining401k.IsNegative() {
		remaining401k = decimal.Zero
	}

	for _, d := range deductions {
		if d.Category.PreTax() || !d.Amount.IsPositive() {
			continue
		}

		applied := d.Amount
		if d.Category == CategoryRoth401k {
			applied = decimal.Min(applied, remaining401k)
		}
		applied = decimal.Min(applied, available)
		if applied.IsNegative() {
			applied = decimal.Zero
		}

		if d.Category == CategoryRoth401k {
			remaining401k = remaining401k.Sub(applied)
		}
		available = available.Sub(applied)

		out.Total = out.Total.Add(applied)
		out.Applied = append(out.Applied, Applied{
			Category:  d.Category,
			Requested: d.Amount,
			Applied:   applied,
			Excess:    d.Amount.Sub(applied),
		})
	}

	return out
}

// remainingLimits maps capped pre-tax categories to the room left under
// their annual limit, floored at zero. Traditional 401k room is reduced by
// every 401k contribution so far, Roth included.
func remainingLimits(y ytd.Accumulator, limits ruleset.BenefitLimitRules) map[Category]decimal.Decimal {
	floor := func(d decimal.Decimal) decimal.Decimal {
		if d.IsNegative() {
			return decimal.Zero
		}
		return d
	}
	return map[Category]decimal.Decimal{
		CategoryTrad401k: floor(limits.Limit401k.Sub(y.Contribution401k)),
		CategoryHSA:      floor(limits.LimitHSA.Sub(y.ContributionHSA)),
		CategoryFSA:      floor(limits.LimitFSA.Sub(y.ContributionFSA)),
	}
}
