package fetch

import "errors"

// Failure reasons carried by Result.Err.
var (
	ErrUnreachable = errors.New("remote unreachable")
	ErrStatus      = errors.New("remote returned non-success status")
	ErrRead        = errors.New("reading remote body failed")
	ErrTooLarge    = errors.New("remote body exceeds size limit")
	ErrNotImage    = errors.New("remote resource is not an image")
	ErrCancelled   = errors.New("fetch cancelled")
)
