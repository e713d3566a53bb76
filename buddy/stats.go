package buddy

// Stats counts allocator activity since the last Init.
type Stats struct {
	AllocCalls   uint64 // Allocate calls with a valid order
	FreeCalls    uint64 // Free calls
	Exhausted    uint64 // Allocate calls that returned ErrExhausted
	Splits       uint64 // blocks split in half
	Merges       uint64 // buddy pairs coalesced
	RangeInserts uint64 // InsertRange calls
	RangeRemoves uint64 // RemoveRange calls
}

// Stats returns a snapshot of the activity counters.
func (a *Allocator) Stats() Stats { return a.stats }

// FreePages returns the number of pages currently linked in the free lists.
func (a *Allocator) FreePages() uint64 {
	if a.free == nil {
		return 0
	}
	var n uint64
	for order := 0; order <= a.maxOrder; order++ {
		n += a.free.len(order) * BlockSize(order)
	}
	return n
}

// FreeBlocks returns the number of free blocks at order.
func (a *Allocator) FreeBlocks(order int) int {
	if a.free == nil || order < 0 || order > a.maxOrder {
		return 0
	}
	return int(a.free.len(order))
}

// FreeList returns the start PFNs of the free blocks at order, ascending.
func (a *Allocator) FreeList(order int) []PFN {
	if a.free == nil || order < 0 || order > a.maxOrder {
		return nil
	}
	return a.free.blocks(order)
}

// IsFree reports whether (pfn, order) is currently a free block.
func (a *Allocator) IsFree(pfn PFN, order int) bool {
	if a.free == nil || order < 0 || order > a.maxOrder {
		return false
	}
	return a.free.has(pfn, order)
}
