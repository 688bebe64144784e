package payrun

// Status is a payroll run's lifecycle state. Transitions are one-way and
// may not skip: draft → pending_approval → approved → processing →
// completed. A failure during processing lands in failed, which is
// terminal alongside completed.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusProcessing      Status = "processing"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// next maps each state to its sole forward transition.
var next = map[Status]Status{
	StatusDraft:           StatusPendingApproval,
	StatusPendingApproval: StatusApproved,
	StatusApproved:        StatusProcessing,
	StatusProcessing:      StatusCompleted,
}

// CanTransition reports whether from → to is a legal forward step. failed
// is reachable from processing only.
func CanTransition(from, to Status) bool {
	if to == StatusFailed {
		return from == StatusProcessing
	}
	return next[from] == to
}
