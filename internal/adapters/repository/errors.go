package repository

import "errors"

// Sentinel kinds for counter store errors.
var (
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrClosed         = errors.New("store closed")
	ErrPersist        = errors.New("persist counter store failed")
)
