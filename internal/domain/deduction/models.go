package deduction

import "github.com/shopspring/decimal"

// Category identifies a benefit or voluntary deduction. Tax treatment per
// category:
//
//	health_premium   pre-tax, reduces income and FICA bases (section 125)
//	hsa, fsa         pre-tax, reduces income and FICA bases, annual cap
//	401k_traditional pre-tax, reduces income base only, annual cap
//	401k_roth        post-tax, reduces no base, shares the 401k annual cap
//	other_post_tax   post-tax, reduces no base
type Category string

const (
	CategoryHealth       Category = "health_premium"
	CategoryHSA          Category = "hsa"
	CategoryFSA          Category = "fsa"
	CategoryTrad401k     Category = "401k_traditional"
	CategoryRoth401k     Category = "401k_roth"
	CategoryOtherPostTax Category = "other_post_tax"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryHealth, CategoryHSA, CategoryFSA, CategoryTrad401k, CategoryRoth401k, CategoryOtherPostTax:
		return true
	}
	return false
}

// PreTax reports whether the category is withheld before taxes.
func (c Category) PreTax() bool {
	switch c {
	case CategoryHealth, CategoryHSA, CategoryFSA, CategoryTrad401k:
		return true
	}
	return false
}

// reducesFICABase reports whether the category is excluded from FICA wages.
// Traditional 401k deferrals stay FICA-taxable per IRS rules; cafeteria
// plan categories do not.
func (c Category) reducesFICABase() bool {
	switch c {
	case CategoryHealth, CategoryHSA, CategoryFSA:
		return true
	}
	return false
}

// Deduction is one requested per-period deduction.
type Deduction struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// Applied is the outcome for one requested deduction. Applied is what was
// actually withheld; Excess is the portion that exceeded a remaining annual
// limit and therefore stayed in taxable wages (pre-tax) or in net pay
// (post-tax). A capped contribution is reported, never rejected.
type Applied struct {
	Category  Category        `json:"category"`
	Requested decimal.Decimal `json:"requested"`
	Applied   decimal.Decimal `json:"applied"`
	Excess    decimal.Decimal `json:"excess"`
}

// PreTaxResult carries the two tax bases produced by pre-tax application.
type PreTaxResult struct {
	FICABase   decimal.Decimal `json:"ficaBase"`
	IncomeBase decimal.Decimal `json:"incomeBase"`
	Applied    []Applied       `json:"applied,omitempty"`
	Total      decimal.Decimal `json:"total"`
}

// PostTaxResult carries post-tax application against net pay.
type PostTaxResult struct {
	Applied []Applied       `json:"applied,omitempty"`
	Total   decimal.Decimal `json:"total"`
}
