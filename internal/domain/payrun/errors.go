package payrun

import "errors"

var (
	ErrNotFound     = errors.New("payroll run not found")
	ErrInvalidState = errors.New("operation not allowed in the run's current state")
	ErrNotDraft     = errors.New("run membership can only change while the run is draft")
	ErrNoMembers    = errors.New("payroll run has no employees")

	// ErrNegativeNet means deductions drove an employee's net pay below
	// zero. Always surfaced to the operator as a misconfiguration; never
	// silently clamped.
	ErrNegativeNet = errors.New("net pay is negative after deductions")
)
