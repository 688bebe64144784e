package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/ytd"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bracket(lower, upper, rate string) ruleset.Bracket {
	b := ruleset.Bracket{Lower: d(lower), Rate: d(rate)}
	if upper != "" {
		u := d(upper)
		b.Upper = &u
	}
	return b
}

// federalRules mirrors the 2026 federal table for single filers.
func federalRules() *ruleset.IncomeTaxRules {
	return &ruleset.IncomeTaxRules{
		StandardDeduction: map[string]decimal.Decimal{
			"single":                 d("15750"),
			"married_filing_jointly": d("31500"),
		},
		DependentCredit: d("2000"),
		Brackets: map[string][]ruleset.Bracket{
			"single": {
				bracket("0", "12400", "0.10"),
				bracket("12400", "50400", "0.12"),
				bracket("50400", "105700", "0.22"),
				bracket("105700", "201775", "0.24"),
				bracket("201775", "256225", "0.32"),
				bracket("256225", "640600", "0.35"),
				bracket("640600", "", "0.37"),
			},
		},
	}
}

func californiaRules() *ruleset.IncomeTaxRules {
	return &ruleset.IncomeTaxRules{
		StandardDeduction: map[string]decimal.Decimal{"single": d("5500")},
		Brackets: map[string][]ruleset.Bracket{
			"single": {
				bracket("0", "10000", "0.01"),
				bracket("10000", "50000", "0.04"),
				bracket("50000", "", "0.08"),
			},
		},
		SDIRate: d("0.012"),
	}
}

func ficaRules() *ruleset.FICARules {
	return &ruleset.FICARules{
		SocialSecurityRate:          d("0.062"),
		SocialSecurityWageBase:      d("181200"),
		MedicareRate:                d("0.0145"),
		AdditionalMedicareRate:      d("0.009"),
		AdditionalMedicareThreshold: d("200000"),
		FUTARate:                    d("0.006"),
		FUTAWageBase:                d("7000"),
		SUTARate:                    d("0.027"),
		SUTAWageBase:                d("10000"),
	}
}

func singleBiweekly(gross string) CalcInput {
	g := d(gross)
	return CalcInput{
		Gross:       g,
		FICAWages:   g,
		IncomeWages: g,
		Profile:     Profile{FilingStatus: FilingSingle, WorkState: "CA"},
		Frequency:   FrequencyBiweekly,
		YTD:         ytd.New("emp-1", 2026),
		Rules: Rules{
			Federal: federalRules(),
			State:   californiaRules(),
			FICA:    ficaRules(),
		},
	}
}

func TestCalculateBiweeklySingle(t *testing.T) {
	got, err := Calculate(singleBiweekly("5000"))
	require.NoError(t, err)

	// 130000 annualized less the 15750 standard deduction walks four
	// brackets to 20018 a year, 769.92 per period.
	require.Equal(t, "769.92", got.Federal.StringFixed(2))
	require.Equal(t, "294.62", got.State.StringFixed(2))
	require.Equal(t, "0.00", got.Local.StringFixed(2))
	require.Equal(t, "310.00", got.SocialSecurity.StringFixed(2))
	require.Equal(t, "72.50", got.Medicare.StringFixed(2))
	require.Equal(t, "0.00", got.AdditionalMedicare.StringFixed(2))
	require.Equal(t, "60.00", got.SDI.StringFixed(2))
	require.Equal(t, "5000", got.SocialSecurityWages.String())

	total := d("769.92").Add(d("294.62")).Add(d("310.00")).Add(d("72.50")).Add(d("60.00"))
	require.True(t, got.EmployeeTotal().Equal(total), "employee total %s", got.EmployeeTotal())
}

func TestCalculateEmployerTaxes(t *testing.T) {
	got, err := Calculate(singleBiweekly("5000"))
	require.NoError(t, err)

	// First period of the year: both unemployment bases are untouched but
	// smaller than the period wages.
	require.Equal(t, "30.00", got.EmployerFUTA.StringFixed(2))
	require.Equal(t, "135.00", got.EmployerSUTA.StringFixed(2))

	in := singleBiweekly("5000")
	in.YTD.Gross = d("9000")
	got, err = Calculate(in)
	require.NoError(t, err)
	require.Equal(t, "0.00", got.EmployerFUTA.StringFixed(2))
	require.Equal(t, "27.00", got.EmployerSUTA.StringFixed(2))
}

func TestCalculateExempt(t *testing.T) {
	in := singleBiweekly("2000")
	in.Profile.Exempt = true

	got, err := Calculate(in)
	require.NoError(t, err)

	// Exemption covers income taxes only; FICA and SDI are always withheld.
	require.Equal(t, "0.00", got.Federal.StringFixed(2))
	require.Equal(t, "0.00", got.State.StringFixed(2))
	require.Equal(t, "124.00", got.SocialSecurity.StringFixed(2))
	require.Equal(t, "29.00", got.Medicare.StringFixed(2))
	require.Equal(t, "24.00", got.SDI.StringFixed(2))
}

func TestCalculateAdditionalWithholding(t *testing.T) {
	in := singleBiweekly("5000")
	in.Profile.AdditionalWithholding = d("50")

	got, err := Calculate(in)
	require.NoError(t, err)
	require.Equal(t, "819.92", got.Federal.StringFixed(2))
}

func TestCalculateFederalCappedAtWages(t *testing.T) {
	in := singleBiweekly("100")
	in.Profile.AdditionalWithholding = d("500")

	got, err := Calculate(in)
	require.NoError(t, err)
	require.Equal(t, "100.00", got.Federal.StringFixed(2))
}

func TestCalculateDependentCredit(t *testing.T) {
	base, err := Calculate(singleBiweekly("5000"))
	require.NoError(t, err)

	in := singleBiweekly("5000")
	in.Profile.Dependents = 2
	got, err := Calculate(in)
	require.NoError(t, err)

	// 4000 off annual taxable income, all inside the 24% bracket:
	// 960 a year, 36.92 per period.
	require.Equal(t, base.Federal.Sub(d("36.92")).StringFixed(2), got.Federal.StringFixed(2))
}

func TestCalculateSocialSecurityWageBase(t *testing.T) {
	in := singleBiweekly("5000")
	in.YTD.SocialSecurityWages = d("180000")

	got, err := Calculate(in)
	require.NoError(t, err)

	// 1200 of headroom left under the 181200 base.
	require.Equal(t, "1200", got.SocialSecurityWages.String())
	require.Equal(t, "74.40", got.SocialSecurity.StringFixed(2))

	in.YTD.SocialSecurityWages = d("181200")
	got, err = Calculate(in)
	require.NoError(t, err)
	require.Equal(t, "0.00", got.SocialSecurity.StringFixed(2))
	require.True(t, got.SocialSecurityWages.IsZero())
}

func TestCalculateAdditionalMedicare(t *testing.T) {
	in := singleBiweekly("5000")
	in.YTD.Gross = d("198000")

	got, err := Calculate(in)
	require.NoError(t, err)

	// 3000 of this period's wages sit above the 200000 threshold.
	require.Equal(t, "27.00", got.AdditionalMedicare.StringFixed(2))

	in.YTD.Gross = d("250000")
	got, err = Calculate(in)
	require.NoError(t, err)
	require.Equal(t, "45.00", got.AdditionalMedicare.StringFixed(2))
}

func TestCalculateFlatRateLocal(t *testing.T) {
	in := singleBiweekly("5000")
	flat := d("0.01")
	in.Rules.Local = &ruleset.IncomeTaxRules{FlatRate: &flat}
	in.Profile.LocalCode = "NYC"

	got, err := Calculate(in)
	require.NoError(t, err)
	require.Equal(t, "50.00", got.Local.StringFixed(2))
}

func TestCalculateWagesBelowDeduction(t *testing.T) {
	got, err := Calculate(singleBiweekly("500"))
	require.NoError(t, err)

	// 13000 annualized is under the standard deduction.
	require.Equal(t, "0.00", got.Federal.StringFixed(2))
}

func TestCalculateInputErrors(t *testing.T) {
	in := singleBiweekly("5000")
	in.Gross = d("-1")
	_, err := Calculate(in)
	require.ErrorIs(t, err, ErrNegativeGross)

	in = singleBiweekly("5000")
	in.Frequency = "fortnightly"
	_, err = Calculate(in)
	require.ErrorIs(t, err, ErrInvalidFrequency)

	in = singleBiweekly("5000")
	in.Rules.Federal = nil
	_, err = Calculate(in)
	require.ErrorIs(t, err, ErrMissingRules)

	in = singleBiweekly("5000")
	in.Rules.FICA = nil
	_, err = Calculate(in)
	require.ErrorIs(t, err, ErrMissingRules)
}
