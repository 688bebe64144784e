package payrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"paycore/internal/domain/employee"
)

// StatementWriter renders a pay statement PDF for one employee result.
type StatementWriter struct {
	employees employee.StoreAPI
}

func NewStatementWriter(employees employee.StoreAPI) *StatementWriter {
	return &StatementWriter{employees: employees}
}

// Write renders the statement to w.
func (s *StatementWriter) Write(ctx context.Context, run Run, result EmployeeResult, w io.Writer) error {
	emp, err := s.employees.Get(ctx, result.EmployeeID)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Pay Statement")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s %s", emp.FirstName, emp.LastName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", emp.Email))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s",
		run.PeriodStart.Format("2006-01-02"), run.PeriodEnd.Format("2006-01-02")))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Pay date: %s", run.PayDate.Format("2006-01-02")))
	pdf.Ln(10)

	line := func(label, amount string) {
		pdf.Cell(100, 7, label)
		pdf.CellFormat(40, 7, amount, "", 0, "R", false, 0, "")
		pdf.Ln(7)
	}

	line("Gross pay", result.Gross.StringFixed(2))
	line("Pre-tax deductions", result.PreTax.Total.Neg().StringFixed(2))
	line("Federal income tax", result.Taxes.Federal.Neg().StringFixed(2))
	if result.Taxes.State.IsPositive() {
		line("State income tax", result.Taxes.State.Neg().StringFixed(2))
	}
	if result.Taxes.Local.IsPositive() {
		line("Local income tax", result.Taxes.Local.Neg().StringFixed(2))
	}
	line("Social Security", result.Taxes.SocialSecurity.Neg().StringFixed(2))
	line("Medicare", result.Taxes.Medicare.Neg().StringFixed(2))
	if result.Taxes.AdditionalMedicare.IsPositive() {
		line("Additional Medicare", result.Taxes.AdditionalMedicare.Neg().StringFixed(2))
	}
	if result.Taxes.SDI.IsPositive() {
		line("State disability insurance", result.Taxes.SDI.Neg().StringFixed(2))
	}
	for _, g := range result.Garnished {
		line(fmt.Sprintf("Garnishment (%s)", g.Payee), g.Withheld.Neg().StringFixed(2))
	}
	if result.PostTax.Total.IsPositive() {
		line("Post-tax deductions", result.PostTax.Total.Neg().StringFixed(2))
	}
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	line("Net pay", result.Net.StringFixed(2))

	return pdf.Output(w)
}

// WriteFile renders the statement under dir and returns the file path.
// Used by the background statement job.
func (s *StatementWriter) WriteFile(ctx context.Context, run Run, result EmployeeResult, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.pdf", run.ID, result.EmployeeID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := s.Write(ctx, run, result, f); err != nil {
		return "", err
	}
	return path, nil
}
