package ytd

import "github.com/shopspring/decimal"

// Accumulator carries one employee's cumulative totals for one tax year.
// It is the single source of truth for wage-base-cap and annual-limit
// decisions; every completed pay event folds its amounts in exactly once.
type Accumulator struct {
	EmployeeID          string                     `json:"employeeId"`
	Year                int                        `json:"year"`
	Gross               decimal.Decimal            `json:"gross"`
	SocialSecurityWages decimal.Decimal            `json:"socialSecurityWages"`
	Contribution401k    decimal.Decimal            `json:"contribution401k"`
	ContributionHSA     decimal.Decimal            `json:"contributionHsa"`
	ContributionFSA     decimal.Decimal            `json:"contributionFsa"`
	GarnishmentWithheld map[string]decimal.Decimal `json:"garnishmentWithheld,omitempty"`
}

// New returns a zeroed accumulator for the first pay event of a year.
func New(employeeID string, year int) Accumulator {
	return Accumulator{
		EmployeeID:          employeeID,
		Year:                year,
		Gross:               decimal.Zero,
		SocialSecurityWages: decimal.Zero,
		Contribution401k:    decimal.Zero,
		ContributionHSA:     decimal.Zero,
		ContributionFSA:     decimal.Zero,
		GarnishmentWithheld: map[string]decimal.Decimal{},
	}
}

// Delta is one pay event's contribution to the accumulator.
type Delta struct {
	Gross               decimal.Decimal
	SocialSecurityWages decimal.Decimal
	Contribution401k    decimal.Decimal
	ContributionHSA     decimal.Decimal
	ContributionFSA     decimal.Decimal
	GarnishmentWithheld map[string]decimal.Decimal
}

// Add folds a pay event into the accumulator and returns the result.
func (a Accumulator) Add(d Delta) Accumulator {
	out := a
	out.Gross = a.Gross.Add(d.Gross)
	out.SocialSecurityWages = a.SocialSecurityWages.Add(d.SocialSecurityWages)
	out.Contribution401k = a.Contribution401k.Add(d.Contribution401k)
	out.ContributionHSA = a.ContributionHSA.Add(d.ContributionHSA)
	out.ContributionFSA = a.ContributionFSA.Add(d.ContributionFSA)

	out.GarnishmentWithheld = make(map[string]decimal.Decimal, len(a.GarnishmentWithheld)+len(d.GarnishmentWithheld))
	for orderID, amount := range a.GarnishmentWithheld {
		out.GarnishmentWithheld[orderID] = amount
	}
	for orderID, amount := range d.GarnishmentWithheld {
		out.GarnishmentWithheld[orderID] = out.GarnishmentWithheld[orderID].Add(amount)
	}
	return out
}
