package buddy

import (
	"errors"
	"fmt"
)

var (
	// ErrExhausted indicates that no free block exists at or above the requested order.
	ErrExhausted = errors.New("buddy: no free block large enough")

	// ErrBadOrder indicates an order outside [0, MaxOrder].
	ErrBadOrder = errors.New("buddy: order out of range")

	// ErrNotInitialized indicates an operation on an allocator that has no managed range.
	ErrNotInitialized = errors.New("buddy: allocator not initialized")

	// ErrInitFailed indicates that Init was given an empty or overflowing page range.
	ErrInitFailed = errors.New("buddy: init failed")

	// ErrBadConfig indicates an unusable Config (MaxOrder outside [0, MaxSupportedOrder]).
	ErrBadConfig = errors.New("buddy: bad config")
)

// InvariantViolation describes a broken free-list contract.
//
// It is raised with panic by operations that detect a caller contract breach
// (removing an unlinked block, freeing at the wrong granularity, double free)
// and returned as an error by Verify. Continuing after one would corrupt the
// free lists, so operations never recover from it.
type InvariantViolation struct {
	Op     string // operation that detected the violation
	PFN    PFN    // block start the violation refers to
	Order  int    // order the block was claimed to live at
	Reason string // human-readable description
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("buddy: invariant violation in %s: pfn 0x%x order %d: %s",
		v.Op, uint64(v.PFN), v.Order, v.Reason)
}

func violation(op string, pfn PFN, order int, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{
		Op:     op,
		PFN:    pfn,
		Order:  order,
		Reason: fmt.Sprintf(format, args...),
	}
}
