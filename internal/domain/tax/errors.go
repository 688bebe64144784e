package tax

import "errors"

var (
	ErrInvalidFrequency = errors.New("unknown pay frequency")
	ErrNegativeGross    = errors.New("gross pay must not be negative")
	ErrMissingRules     = errors.New("required tax rules missing from input")
)
