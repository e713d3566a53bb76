// Package buddy implements a binary buddy page allocator.
//
// # Overview
//
// The allocator manages a contiguous range of page frame numbers (PFNs) and
// hands out blocks of 1<<order pages, for order in [0, MaxOrder]. Requests are
// served from per-order free lists; larger blocks are split in half on demand
// and freed blocks are merged with their buddy eagerly, so the free state is
// always the coarsest possible.
//
// # Operations
//
//   - Init(base, count): establish the managed range, empty free lists
//   - InsertRange(start, count): make pages available
//   - RemoveRange(start, count): withdraw free pages (reserve a region)
//   - Allocate(order): take a block of exactly 1<<order pages
//   - Free(pfn, order): return a block and coalesce
//   - DumpState / Verify / Stats: inspection
//
// # Usage Example
//
//	a, err := buddy.New(&buddy.Config{MaxOrder: 10})
//	if err != nil {
//	    return err
//	}
//	if err := a.Init(0, 4096); err != nil {
//	    return err
//	}
//	a.InsertRange(0, 4096)
//
//	blk, err := a.Allocate(2) // 4 pages
//	if errors.Is(err, buddy.ErrExhausted) {
//	    // out of memory at this order
//	}
//	a.Free(blk.PFN, blk.Order)
//
// # Free Lists
//
// Each order keeps an ascending list of free block starts. Allocation always
// takes the lowest-addressed block of the smallest sufficient order, so
// placement is deterministic for a given operation sequence.
//
// The lists are intrusive: link slots are indexed by pfn-base in arrays sized
// to the managed range, and a per-page marker records which order a page heads
// a free block at. Membership tests and unlinking are O(1); inserting is O(1)
// for ascending inserts and a list walk otherwise.
//
// # Buddies
//
// The buddy of an aligned block (pfn, order) is pfn+size when pfn is aligned
// to order+1, and pfn-size otherwise. A buddy that would fall outside the
// managed range does not exist, so edge blocks of a range that is not a power
// of two stay at the order they were inserted at.
//
// # Contract Violations
//
// Freeing a misaligned, out-of-range or already free block cannot be handled
// without corrupting the lists. Those cases panic with an *InvariantViolation.
// Recoverable conditions (exhaustion, bad order) are returned as errors that
// wrap the sentinels in errors.go.
//
// # Thread Safety
//
// An Allocator is not safe for concurrent use. pgalloc.Manager wraps one with
// a mutex.
package buddy
