package garnishment

import "errors"

var (
	// ErrInvalidPriority means two active orders occupy a priority slot that
	// one of them must hold exclusively. A configuration conflict: surfaced,
	// never silently reordered.
	ErrInvalidPriority = errors.New("conflicting garnishment orders at the same priority")

	ErrNegativeDisposable = errors.New("disposable earnings must not be negative")
	ErrNotFound           = errors.New("garnishment order not found")
)
