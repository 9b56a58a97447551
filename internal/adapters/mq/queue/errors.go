package queue

import "errors"

// ErrClosed is returned once the queue no longer accepts jobs.
var ErrClosed = errors.New("writer queue closed")
