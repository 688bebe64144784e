package payrun

import (
	"encoding/csv"
	"io"
)

// WriteRegister writes the run's payroll register as CSV, one row per
// employee result in employee-ID order plus a totals row.
func WriteRegister(w io.Writer, run Run, results []EmployeeResult) error {
	cw := csv.NewWriter(w)

	header := []string{
		"run_id", "employee_id", "gross", "pre_tax_deductions",
		"federal", "state", "local", "social_security", "medicare", "additional_medicare", "sdi",
		"garnishments", "post_tax_deductions", "net",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	var totals Totals
	for _, r := range results {
		totals.add(r)
		row := []string{
			run.ID,
			r.EmployeeID,
			r.Gross.StringFixed(2),
			r.PreTax.Total.StringFixed(2),
			r.Taxes.Federal.StringFixed(2),
			r.Taxes.State.StringFixed(2),
			r.Taxes.Local.StringFixed(2),
			r.Taxes.SocialSecurity.StringFixed(2),
			r.Taxes.Medicare.StringFixed(2),
			r.Taxes.AdditionalMedicare.StringFixed(2),
			r.Taxes.SDI.StringFixed(2),
			r.GarnishedTotal().StringFixed(2),
			r.PostTax.Total.StringFixed(2),
			r.Net.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	totalRow := []string{
		run.ID,
		"TOTAL",
		totals.Gross.StringFixed(2),
		totals.PreTaxDeductions.StringFixed(2),
		totals.Federal.StringFixed(2),
		totals.State.StringFixed(2),
		totals.Local.StringFixed(2),
		totals.SocialSecurity.StringFixed(2),
		totals.Medicare.StringFixed(2),
		totals.AdditionalMedicare.StringFixed(2),
		totals.SDI.StringFixed(2),
		totals.Garnishments.StringFixed(2),
		totals.PostTaxDeductions.StringFixed(2),
		totals.Net.StringFixed(2),
	}
	if err := cw.Write(totalRow); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}
