package ruleset

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Well-known ruleset keys. A RuleSet is addressed by (key, jurisdiction)
// plus an as-of date.
const (
	KeyFederalWithholding = "irs_federal_withholding"
	KeyStateIncome        = "state_income_tax"
	KeyLocalIncome        = "local_income_tax"
	KeyFICA               = "fica"
	KeyBenefitLimits      = "benefit_limits"
	KeyGarnishmentLimits  = "garnishment_limits"
)

type RuleType string

const (
	TypeFederalIncome RuleType = "federal_income"
	TypeStateIncome   RuleType = "state_income"
	TypeLocalIncome   RuleType = "local_income"
	TypeFICA          RuleType = "fica"
	TypeBenefitLimits RuleType = "benefit_limits"
	TypeGarnishment   RuleType = "garnishment"
)

// RuleSet is a versioned, effective-dated bundle of jurisdictional tax
// parameters. Issued versions are never mutated; corrections are published
// as a new version with a later effective window.
type RuleSet struct {
	ID             string          `json:"id"`
	Key            string          `json:"key"`
	Jurisdiction   string          `json:"jurisdiction"`
	RuleType       RuleType        `json:"ruleType"`
	Version        int             `json:"version"`
	EffectiveStart time.Time       `json:"effectiveStart"`
	EffectiveEnd   *time.Time      `json:"effectiveEnd,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Covers reports whether the ruleset's effective window contains the date.
func (r RuleSet) Covers(asOf time.Time) bool {
	if asOf.Before(r.EffectiveStart) {
		return false
	}
	return r.EffectiveEnd == nil || !asOf.After(*r.EffectiveEnd)
}

// Bracket is one row of a progressive rate table. Upper is nil on the
// open-ended top bracket. Bounds are annual amounts.
type Bracket struct {
	Lower decimal.Decimal  `json:"lower"`
	Upper *decimal.Decimal `json:"upper,omitempty"`
	Rate  decimal.Decimal  `json:"rate"`
}

// IncomeTaxRules is the payload for federal, state, and local income tax
// rulesets. Either Brackets (keyed by filing status) or FlatRate is set.
// SDI fields apply only to states that levy disability insurance.
type IncomeTaxRules struct {
	FlatRate          *decimal.Decimal           `json:"flatRate,omitempty"`
	StandardDeduction map[string]decimal.Decimal `json:"standardDeduction,omitempty"`
	DependentCredit   decimal.Decimal            `json:"dependentCredit"`
	Brackets          map[string][]Bracket       `json:"brackets,omitempty"`
	SDIRate           decimal.Decimal            `json:"sdiRate"`
}

// FICARules carries rates and annual wage bases for FICA plus the employer
// unemployment side.
type FICARules struct {
	SocialSecurityRate          decimal.Decimal `json:"socialSecurityRate"`
	SocialSecurityWageBase      decimal.Decimal `json:"socialSecurityWageBase"`
	MedicareRate                decimal.Decimal `json:"medicareRate"`
	AdditionalMedicareRate      decimal.Decimal `json:"additionalMedicareRate"`
	AdditionalMedicareThreshold decimal.Decimal `json:"additionalMedicareThreshold"`
	FUTARate                    decimal.Decimal `json:"futaRate"`
	FUTAWageBase                decimal.Decimal `json:"futaWageBase"`
	SUTARate                    decimal.Decimal `json:"sutaRate"`
	SUTAWageBase                decimal.Decimal `json:"sutaWageBase"`
}

// BenefitLimitRules carries annual contribution limits for tax-advantaged
// benefit categories.
type BenefitLimitRules struct {
	Limit401k decimal.Decimal `json:"limit401k"`
	LimitHSA  decimal.Decimal `json:"limitHsa"`
	LimitFSA  decimal.Decimal `json:"limitFsa"`
}

// LevyExemption is the annual amount of disposable earnings exempt from an
// IRS levy for one filing status. Per-period amounts are derived by the
// resolver from the pay frequency.
type LevyExemption struct {
	Base         decimal.Decimal `json:"base"`
	PerDependent decimal.Decimal `json:"perDependent"`
}

// GarnishmentRules carries the protected-earnings parameters used by the
// garnishment resolver. Percentages are fractions of disposable earnings.
type GarnishmentRules struct {
	FederalMinimumWage     decimal.Decimal          `json:"federalMinimumWage"`
	GeneralCapPercent      decimal.Decimal          `json:"generalCapPercent"`
	ChildSupportCapPercent decimal.Decimal          `json:"childSupportCapPercent"`
	StudentLoanCapPercent  decimal.Decimal          `json:"studentLoanCapPercent"`
	LevyExempt             map[string]LevyExemption `json:"levyExempt,omitempty"`
}

func (r RuleSet) IncomeTaxRules() (IncomeTaxRules, error) {
	var out IncomeTaxRules
	err := json.Unmarshal(r.Payload, &out)
	return out, err
}

func (r RuleSet) FICARules() (FICARules, error) {
	var out FICARules
	err := json.Unmarshal(r.Payload, &out)
	return out, err
}

func (r RuleSet) BenefitLimitRules() (BenefitLimitRules, error) {
	var out BenefitLimitRules
	err := json.Unmarshal(r.Payload, &out)
	return out, err
}

func (r RuleSet) GarnishmentRules() (GarnishmentRules, error) {
	var out GarnishmentRules
	err := json.Unmarshal(r.Payload, &out)
	return out, err
}
