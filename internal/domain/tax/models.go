package tax

import (
	"github.com/shopspring/decimal"

	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/ytd"
)

type FilingStatus string

const (
	FilingSingle            FilingStatus = "single"
	FilingMarriedJointly    FilingStatus = "married_filing_jointly"
	FilingMarriedSeparately FilingStatus = "married_filing_separately"
	FilingHeadOfHousehold   FilingStatus = "head_of_household"
)

func (f FilingStatus) Valid() bool {
	switch f {
	case FilingSingle, FilingMarriedJointly, FilingMarriedSeparately, FilingHeadOfHousehold:
		return true
	}
	return false
}

type PayFrequency string

const (
	FrequencyWeekly      PayFrequency = "weekly"
	FrequencyBiweekly    PayFrequency = "biweekly"
	FrequencySemiMonthly PayFrequency = "semi_monthly"
	FrequencyMonthly     PayFrequency = "monthly"
)

// PeriodsPerYear is the annualization factor for the frequency.
func (f PayFrequency) PeriodsPerYear() int64 {
	switch f {
	case FrequencyWeekly:
		return 52
	case FrequencyBiweekly:
		return 26
	case FrequencySemiMonthly:
		return 24
	case FrequencyMonthly:
		return 12
	}
	return 0
}

func (f PayFrequency) Valid() bool {
	return f.PeriodsPerYear() > 0
}

// Profile is an employee's withholding attributes. Immutable for the
// duration of a pay run; HR updates happen outside the engine.
type Profile struct {
	FilingStatus          FilingStatus    `json:"filingStatus"`
	Dependents            int             `json:"dependents"`
	AdditionalWithholding decimal.Decimal `json:"additionalWithholding"`
	Exempt                bool            `json:"exempt"`
	WorkState             string          `json:"workState"`
	HomeState             string          `json:"homeState"`
	LocalCode             string          `json:"localCode,omitempty"`
}

// Rules is the resolved rule bundle for one employee and as-of date.
// State and Local are nil for jurisdictions that levy no income tax.
type Rules struct {
	Federal *ruleset.IncomeTaxRules
	State   *ruleset.IncomeTaxRules
	Local   *ruleset.IncomeTaxRules
	FICA    *ruleset.FICARules
}

// CalcInput is one employee's per-period computation input. FICAWages and
// IncomeWages differ from Gross only when pre-tax deductions apply; the
// deduction aggregator produces both bases.
type CalcInput struct {
	Gross       decimal.Decimal
	FICAWages   decimal.Decimal
	IncomeWages decimal.Decimal
	Profile     Profile
	Frequency   PayFrequency
	YTD         ytd.Accumulator
	Rules       Rules
}

// Result holds every statutory withholding for one pay period, rounded to
// cents. SocialSecurityWages is the portion of this period's FICA wages
// that counted toward the annual wage base, needed for YTD accumulation.
type Result struct {
	Federal            decimal.Decimal `json:"federal"`
	State              decimal.Decimal `json:"state"`
	Local              decimal.Decimal `json:"local"`
	SocialSecurity     decimal.Decimal `json:"socialSecurity"`
	Medicare           decimal.Decimal `json:"medicare"`
	AdditionalMedicare decimal.Decimal `json:"additionalMedicare"`
	SDI                decimal.Decimal `json:"sdi"`

	EmployerFUTA decimal.Decimal `json:"employerFuta"`
	EmployerSUTA decimal.Decimal `json:"employerSuta"`

	SocialSecurityWages decimal.Decimal `json:"socialSecurityWages"`
}

// EmployeeTotal is the sum of employee-side withholding; employer taxes are
// excluded since they never reduce the employee's pay.
func (r Result) EmployeeTotal() decimal.Decimal {
	return r.Federal.Add(r.State).Add(r.Local).
		Add(r.SocialSecurity).Add(r.Medicare).Add(r.AdditionalMedicare).
		Add(r.SDI)
}
