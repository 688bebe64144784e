package payrun

import "context"

// StoreAPI is the run aggregator's persistence surface.
//
// Transition must be a guarded compare-and-set: the status moves from
// exactly `from` to `to` or the call fails with ErrInvalidState, so two
// operators cannot race a run through the same transition twice.
type StoreAPI interface {
	Create(ctx context.Context, run Run) (string, error)
	Get(ctx context.Context, runID string) (Run, error)
	List(ctx context.Context, limit, offset int) ([]Run, error)
	Transition(ctx context.Context, runID string, from, to Status) error
	MarkFailed(ctx context.Context, runID, employeeID, reason string) error

	AddMember(ctx context.Context, runID, employeeID string) error
	RemoveMember(ctx context.Context, runID, employeeID string) error
	ListMembers(ctx context.Context, runID string) ([]string, error)

	SaveResult(ctx context.Context, result EmployeeResult) error
	ListResults(ctx context.Context, runID string) ([]EmployeeResult, error)
	SaveTotals(ctx context.Context, runID string, totals Totals) error
}
