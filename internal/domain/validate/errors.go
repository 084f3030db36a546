package validate

import "errors"

// Sentinel kinds for validation errors.
var (
	ErrInvalidFormat = errors.New("invalid format")
)
