package cell

import "errors"

// ErrOutOfMemory is returned by Reserve when the free list is empty.
var ErrOutOfMemory = errors.New("cell: out of memory")

// ErrInvalidRef is returned when a Ref does not name a cell currently
// reserved from the pool (double release, stale reference, etc.).
var ErrInvalidRef = errors.New("cell: invalid reference")
