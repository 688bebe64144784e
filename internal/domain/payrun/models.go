package payrun

import (
	"time"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/deduction"
	"paycore/internal/domain/garnishment"
	"paycore/internal/domain/tax"
)

// Run is one payroll batch over a pay period.
type Run struct {
	ID          string           `json:"id"`
	PeriodStart time.Time        `json:"periodStart"`
	PeriodEnd   time.Time        `json:"periodEnd"`
	PayDate     time.Time        `json:"payDate"`
	Frequency   tax.PayFrequency `json:"frequency"`
	Status      Status           `json:"status"`
	Totals      *Totals          `json:"totals,omitempty"`

	FailedEmployeeID string    `json:"failedEmployeeId,omitempty"`
	FailureReason    string    `json:"failureReason,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Totals accumulates run-level sums across successfully computed employees.
type Totals struct {
	EmployeeCount      int             `json:"employeeCount"`
	Gross              decimal.Decimal `json:"gross"`
	PreTaxDeductions   decimal.Decimal `json:"preTaxDeductions"`
	Federal            decimal.Decimal `json:"federal"`
	State              decimal.Decimal `json:"state"`
	Local              decimal.Decimal `json:"local"`
	SocialSecurity     decimal.Decimal `json:"socialSecurity"`
	Medicare           decimal.Decimal `json:"medicare"`
	AdditionalMedicare decimal.Decimal `json:"additionalMedicare"`
	SDI                decimal.Decimal `json:"sdi"`
	EmployerFUTA       decimal.Decimal `json:"employerFuta"`
	EmployerSUTA       decimal.Decimal `json:"employerSuta"`
	Garnishments       decimal.Decimal `json:"garnishments"`
	PostTaxDeductions  decimal.Decimal `json:"postTaxDeductions"`
	Net                decimal.Decimal `json:"net"`
}

// add folds one employee result into the totals.
func (t *Totals) add(r EmployeeResult) {
	t.EmployeeCount++
	t.Gross = t.Gross.Add(r.Gross)
	t.PreTaxDeductions = t.PreTaxDeductions.Add(r.PreTax.Total)
	t.Federal = t.Federal.Add(r.Taxes.Federal)
	t.State = t.State.Add(r.Taxes.State)
	t.Local = t.Local.Add(r.Taxes.Local)
	t.SocialSecurity = t.SocialSecurity.Add(r.Taxes.SocialSecurity)
	t.Medicare = t.Medicare.Add(r.Taxes.Medicare)
	t.AdditionalMedicare = t.AdditionalMedicare.Add(r.Taxes.AdditionalMedicare)
	t.SDI = t.SDI.Add(r.Taxes.SDI)
	t.EmployerFUTA = t.EmployerFUTA.Add(r.Taxes.EmployerFUTA)
	t.EmployerSUTA = t.EmployerSUTA.Add(r.Taxes.EmployerSUTA)
	t.Garnishments = t.Garnishments.Add(r.GarnishedTotal())
	t.PostTaxDeductions = t.PostTaxDeductions.Add(r.PostTax.Total)
	t.Net = t.Net.Add(r.Net)
}

// EmployeeResult is one employee's fully computed pay for a run. Created
// whole or not at all; a partially computed employee is never persisted.
type EmployeeResult struct {
	RunID      string                    `json:"runId"`
	EmployeeID string                    `json:"employeeId"`
	Gross      decimal.Decimal           `json:"gross"`
	PreTax     deduction.PreTaxResult    `json:"preTax"`
	Taxes      tax.Result                `json:"taxes"`
	Disposable decimal.Decimal           `json:"disposable"`
	Garnished  []garnishment.Withholding `json:"garnished,omitempty"`
	PostTax    deduction.PostTaxResult   `json:"postTax"`
	Net        decimal.Decimal           `json:"net"`
	ComputedAt time.Time                 `json:"computedAt"`
}

// GarnishedTotal sums withholding across the employee's orders.
func (r EmployeeResult) GarnishedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, w := range r.Garnished {
		total = total.Add(w.Withheld)
	}
	return total
}

// RunResult is the outcome surfaced to callers of Process.
type RunResult struct {
	Run     Run              `json:"run"`
	Results []EmployeeResult `json:"results,omitempty"`
}
