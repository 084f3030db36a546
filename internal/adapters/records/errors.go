package records

import "errors"

// Sentinel kinds for record parsing errors.
var (
	ErrMalformedInput  = errors.New("malformed delimited input")
	ErrSerializeFailed = errors.New("serialize failed")
)
