package ledger

import "errors"

// Sentinel kinds for ledger client errors.
var (
	ErrTransport = errors.New("ledger transport failed")
	ErrRPC       = errors.New("ledger rpc error")
)
