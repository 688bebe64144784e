package ytd

import "context"

// StoreAPI persists accumulators keyed by (employee, tax year).
//
// Apply must be atomic per employee: concurrent payroll runs touching the
// same employee serialize on the accumulator row, so a pay event is never
// folded in against a stale read.
type StoreAPI interface {
	// Get returns the accumulator, or a zeroed one when the employee has no
	// pay events in the year yet.
	Get(ctx context.Context, employeeID string, year int) (Accumulator, error)

	// Apply folds the delta into the stored accumulator under a per-employee
	// lock and returns the updated value.
	Apply(ctx context.Context, employeeID string, year int, delta Delta) (Accumulator, error)
}
