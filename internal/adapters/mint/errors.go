package mint

import "errors"

// Sentinel kinds for mint errors.
var (
	ErrMintFailed = errors.New("mint failed")
)
