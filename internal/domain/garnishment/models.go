package garnishment

import (
	"time"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/tax"
)

// Type classifies a garnishment order. Each type carries a default
// statutory priority; child support always outranks everything else.
type Type string

const (
	TypeChildSupport Type = "child_support"
	TypeIRSLevy      Type = "irs_levy"
	TypeBankruptcy   Type = "bankruptcy"
	TypeStudentLoan  Type = "student_loan"
	TypeCreditor     Type = "creditor"
)

// DefaultPriority is the statutory ordering used when an order is created
// without an explicit priority. Lower processes first.
func (t Type) DefaultPriority() int {
	switch t {
	case TypeChildSupport:
		return 1
	case TypeIRSLevy:
		return 2
	case TypeBankruptcy:
		return 3
	case TypeStudentLoan:
		return 4
	case TypeCreditor:
		return 5
	}
	return 9
}

func (t Type) Valid() bool {
	switch t {
	case TypeChildSupport, TypeIRSLevy, TypeBankruptcy, TypeStudentLoan, TypeCreditor:
		return true
	}
	return false
}

// exclusive types may not share a priority slot with any other active
// order: a bankruptcy trustee order and an IRS levy each preempt their
// slot entirely.
func (t Type) exclusive() bool {
	return t == TypeBankruptcy || t == TypeIRSLevy
}

type AmountType string

const (
	AmountFixed             AmountType = "fixed"
	AmountPercentDisposable AmountType = "percent_disposable"
	AmountIRSTable          AmountType = "irs_table"
)

func (a AmountType) Valid() bool {
	switch a {
	case AmountFixed, AmountPercentDisposable, AmountIRSTable:
		return true
	}
	return false
}

// Order is one garnishment order active against an employee. AmountValue
// is a dollar amount for fixed orders, a fraction of disposable earnings
// for percent orders, and unused for irs_table orders (the levy table in
// the garnishment ruleset determines the amount).
type Order struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employeeId"`
	Type        Type            `json:"type"`
	Priority    int             `json:"priority"`
	AmountType  AmountType      `json:"amountType"`
	AmountValue decimal.Decimal `json:"amountValue"`
	Payee       string          `json:"payee"`
	CaseNumber  string          `json:"caseNumber,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Withholding is the resolution outcome for one order. Shortfall is the
// portion of the target the protected-earnings rules did not allow this
// period; it is reported for arrears tracking, never borrowed from a
// future period.
type Withholding struct {
	OrderID   string          `json:"orderId"`
	Payee     string          `json:"payee"`
	Withheld  decimal.Decimal `json:"withheld"`
	Shortfall decimal.Decimal `json:"shortfall"`
}

// ResolveInput is everything resolution needs. Disposable earnings are
// pre-computed by the caller (gross minus legally required deductions).
// Frequency, filing status, and dependents feed the weekly-wage floor and
// the levy exemption table.
type ResolveInput struct {
	Disposable   decimal.Decimal
	Frequency    tax.PayFrequency
	FilingStatus tax.FilingStatus
	Dependents   int
	Orders       []Order
	Rules        ruleset.GarnishmentRules
}
