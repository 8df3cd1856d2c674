package heap

import "github.com/cockroachdb/errors"

var (
	// ErrClosed indicates an operation on a heap after Close.
	ErrClosed = errors.New("gc: heap is closed")

	// ErrCollecting indicates an operation that requires an idle heap was
	// attempted mid-cycle.
	ErrCollecting = errors.New("gc: collection in progress")

	// ErrCorrupt is the base error for invariant violations reported by
	// CheckInvariants. Details are attached via wrapping.
	ErrCorrupt = errors.New("gc: heap invariant violated")
)
