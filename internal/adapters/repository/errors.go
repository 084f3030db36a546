package repository

import "errors"

// Sentinel kinds for document store errors.
var (
	ErrNotFound    = errors.New("document not found")
	ErrReadFailed  = errors.New("document read failed")
	ErrWriteFailed = errors.New("document write failed")
)
