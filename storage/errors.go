package storage

import "errors"

// ErrClosed is returned by every method of a Dict or Array handle once it
// has been closed.
var ErrClosed = errors.New("storage: invalid operation on closed handle")

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")
