package notify

import "errors"

// Sentinel kinds for notification errors.
var (
	ErrSendFailed = errors.New("email send failed")
)
