package buddy

// splitBlock divides the free block (pfn, order) into its two halves at
// order-1 and returns the left half. Order-0 blocks are indivisible and are
// returned unchanged.
func (a *Allocator) splitBlock(pfn PFN, order int) PFN {
	if order == 0 {
		return pfn
	}
	if !IsAligned(pfn, order) {
		panic(violation("split", pfn, order, "block not aligned to its order"))
	}

	left := pfn
	right := left + PFN(BlockSize(order-1))

	a.free.remove(left, order)
	a.free.insert(left, order-1)
	a.free.insertAfter(left, right, order-1)
	a.stats.Splits++

	return left
}

// coalesce merges the just-freed block (pfn, order) with its buddy for as
// long as the buddy is free, walking up one order per merge. It stops at
// MaxOrder or at the first order whose buddy is allocated or missing.
func (a *Allocator) coalesce(pfn PFN, order int) {
	for order < a.maxOrder {
		buddy, ok := a.buddyOf(pfn, order)
		if !ok || !a.free.has(buddy, order) {
			return
		}

		a.free.remove(pfn, order)
		a.free.remove(buddy, order)

		// The merged block starts at whichever half is aligned to order+1.
		pfn = min(pfn, buddy)
		order++
		pfn = a.free.insert(pfn, order)
		a.stats.Merges++
	}
}
