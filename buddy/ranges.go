package buddy

// InsertRange makes the count pages starting at start available.
//
// The run is decomposed greedily into the fewest maximal aligned blocks: at
// each step the largest order whose block fits in the remaining count and
// to which start is aligned is freed. Every piece goes through the normal
// free path, so it merges with free buddies already in the table.
func (a *Allocator) InsertRange(start PFN, count uint64) {
	a.stats.RangeInserts++
	a.insertRange(start, count)
}

func (a *Allocator) insertRange(start PFN, count uint64) {
	for count > 0 {
		order := a.maxOrder
		for order > 0 && (BlockSize(order) > count || !IsAligned(start, order)) {
			order--
		}

		a.release("insert range", start, order)
		start += PFN(BlockSize(order))
		count -= BlockSize(order)
	}
}

// RemoveRange withdraws the count pages starting at start from availability,
// for example to reserve a physical region.
//
// Each free block intersecting the range is unlinked; the parts of it before
// and after the range are re-inserted through InsertRange so they end up as
// maximal aligned blocks again. Pages of the range that are not free
// (allocated or already withdrawn) are skipped. The range is clipped to the
// managed range.
func (a *Allocator) RemoveRange(start PFN, count uint64) {
	a.stats.RangeRemoves++
	if a.free == nil || count == 0 {
		return
	}

	lo, hi, ok := a.clip(start, count)
	if !ok {
		return
	}

	// lo advances past each block that is consumed; the loop replaces the
	// recursion on the tail of the range so fragmented layouts cannot grow
	// the stack.
	for lo < hi {
		pfn, order, found := a.firstIntersecting(lo, hi)
		if !found {
			return
		}

		end := pfn + PFN(BlockSize(order))
		a.free.remove(pfn, order)

		// Pages in [lo, pfn) are not free: pfn is the lowest intersecting block.
		if pfn < lo {
			a.insertRange(pfn, uint64(lo-pfn))
		}
		if hi <= end {
			if hi < end {
				a.insertRange(hi, uint64(end-hi))
			}
			return
		}
		lo = end
	}
}

// clip intersects [start, start+count) with the managed range.
func (a *Allocator) clip(start PFN, count uint64) (PFN, PFN, bool) {
	lo := max(start, a.base)
	limit := a.base + PFN(a.count)
	hi := limit
	if uint64(start) <= uint64(limit) && count < uint64(limit-start) {
		hi = start + PFN(count)
	}
	return lo, hi, lo < hi
}

// firstIntersecting returns the lowest-addressed free block overlapping
// [lo, hi). Orders are scanned from MaxOrder down; within an order the
// ascending list is walked until a block starts at or past hi.
func (a *Allocator) firstIntersecting(lo, hi PFN) (PFN, int, bool) {
	var (
		best      PFN
		bestOrder int
		found     bool
	)

	for order := a.maxOrder; order >= 0; order-- {
		size := PFN(BlockSize(order))
		a.free.each(order, func(pfn PFN) bool {
			if pfn >= hi || (found && pfn >= best) {
				return false
			}
			if pfn+size <= lo {
				return true
			}
			best, bestOrder, found = pfn, order, true
			return false
		})

		// A block containing lo is the unique answer.
		if found && best <= lo {
			break
		}
	}

	return best, bestOrder, found
}
