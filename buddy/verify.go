package buddy

import (
	"cmp"
	"slices"
)

// Verify walks every free list and checks the structural invariants:
//
//   - each list is strictly ascending and its back links match
//   - every block is aligned to its order and inside the managed range
//   - the per-page order markers agree with list membership
//   - no two free blocks overlap, within or across orders
//   - no two free buddies are left unmerged below MaxOrder
//
// It returns the first violation found as an *InvariantViolation with Op
// "verify", or nil. Verify is O(free blocks) and never modifies state.
func (a *Allocator) Verify() error {
	fl := a.free
	if fl == nil {
		return nil
	}

	var all []Block
	for order := 0; order <= a.maxOrder; order++ {
		var (
			prev  = uint32(nilIndex)
			count uint64
		)
		for idx := fl.heads[order]; idx != nilIndex; idx = fl.next[idx] {
			pfn := fl.pfn(idx)
			if uint64(idx) >= uint64(len(fl.linked)) {
				return violation("verify", pfn, order, "list entry outside managed range")
			}
			if fl.prev[idx] != prev {
				return violation("verify", pfn, order, "back link does not match list order")
			}
			if prev != nilIndex && idx <= prev {
				return violation("verify", pfn, order, "list not strictly ascending after 0x%x",
					uint64(fl.pfn(prev)))
			}
			if fl.linked[idx] != int8(order) {
				return violation("verify", pfn, order, "page marker says order %d", fl.linked[idx])
			}
			if !IsAligned(pfn, order) {
				return violation("verify", pfn, order, "block not aligned to its order")
			}
			if !a.contains(pfn, BlockSize(order)) {
				return violation("verify", pfn, order, "block outside managed range")
			}
			if b, ok := a.buddyOf(pfn, order); ok && fl.has(b, order) {
				return violation("verify", pfn, order, "free buddy 0x%x left unmerged", uint64(b))
			}

			all = append(all, Block{PFN: pfn, Order: order})
			prev = idx
			count++
			if count > uint64(len(fl.linked)) {
				return violation("verify", pfn, order, "free list has a cycle")
			}
		}

		if fl.tails[order] != prev {
			return violation("verify", fl.pfn(prev), order, "tail does not point at last entry")
		}
		if fl.counts[order] != count {
			return violation("verify", 0, order, "count %d but %d entries linked", fl.counts[order], count)
		}
	}

	// Every page marked as heading a block must have been reached by a walk.
	var marked uint64
	for _, o := range fl.linked {
		if o != unlinked {
			marked++
		}
	}
	if marked != uint64(len(all)) {
		return violation("verify", 0, 0, "%d pages marked free but %d blocks linked", marked, len(all))
	}

	slices.SortFunc(all, func(x, y Block) int { return cmp.Compare(x.PFN, y.PFN) })
	for i := 1; i < len(all); i++ {
		if all[i].PFN < all[i-1].End() {
			return violation("verify", all[i].PFN, all[i].Order, "overlaps free block 0x%x order %d",
				uint64(all[i-1].PFN), all[i-1].Order)
		}
	}

	return nil
}
