package service

import "errors"

// ErrNotStarted is returned by Record before Start.
var ErrNotStarted = errors.New("service not started")
