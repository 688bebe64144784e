package employee

import (
	"time"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/deduction"
	"paycore/internal/domain/tax"
)

const (
	StatusActive     = "active"
	StatusTerminated = "terminated"
)

// Employee is one payroll-eligible worker. AnnualSalary is divided by the
// pay frequency's period count to produce per-period gross.
type Employee struct {
	ID           string          `json:"id"`
	FirstName    string          `json:"firstName"`
	LastName     string          `json:"lastName"`
	Email        string          `json:"email"`
	Status       string          `json:"status"`
	AnnualSalary decimal.Decimal `json:"annualSalary"`
	BankAccount  string          `json:"bankAccount,omitempty"`
	Profile      tax.Profile     `json:"taxProfile"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// PeriodGross is the employee's gross pay for one period of the frequency,
// rounded to cents.
func (e Employee) PeriodGross(frequency tax.PayFrequency) decimal.Decimal {
	periods := frequency.PeriodsPerYear()
	if periods == 0 {
		return decimal.Zero
	}
	return e.AnnualSalary.Div(decimal.NewFromInt(periods)).Round(2)
}

// Election is a standing per-period benefit or voluntary deduction.
type Election struct {
	ID         string             `json:"id"`
	EmployeeID string             `json:"employeeId"`
	Category   deduction.Category `json:"category"`
	Amount     decimal.Decimal    `json:"amount"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// Deductions converts elections into the aggregator's input form,
// preserving creation order.
func Deductions(elections []Election) []deduction.Deduction {
	out := make([]deduction.Deduction, 0, len(elections))
	for _, e := range elections {
		out = append(out, deduction.Deduction{Category: e.Category, Amount: e.Amount})
	}
	return out
}
