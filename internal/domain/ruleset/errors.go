package ruleset

import "errors"

var (
	// ErrNotFound means no ruleset's effective window covers the requested
	// date. Callers treat this as fatal for the affected computation;
	// withholding is never defaulted to zero because a table is missing.
	ErrNotFound = errors.New("no active ruleset for jurisdiction and date")

	ErrOverlap        = errors.New("effective window overlaps an existing ruleset version")
	ErrInvalidPayload = errors.New("ruleset payload does not match its rule type")
	ErrInvalidWindow  = errors.New("effective end must be on or after effective start")
)
