package buddy

import "math"

const (
	// nilIndex terminates a free list.
	nilIndex = math.MaxUint32

	// maxPages is the largest range a freeLists table can index.
	maxPages = math.MaxUint32

	// unlinked marks a page that does not start a free block.
	unlinked int8 = -1
)

// freeLists holds one ascending, duplicate-free list of free blocks per order.
//
// The lists are intrusive and index based: next/prev/linked are addressed by
// pfn-base, so a block's links live in the slot of its first page. linked
// records the order a page currently heads a free block at, which makes
// membership tests and unlinking O(1).
type freeLists struct {
	base PFN

	heads  []uint32 // per order: index of the lowest free block
	tails  []uint32 // per order: index of the highest free block
	counts []uint64 // per order: number of free blocks

	next   []uint32
	prev   []uint32
	linked []int8
}

func newFreeLists(base PFN, count uint64, maxOrder int) *freeLists {
	fl := &freeLists{
		base:   base,
		heads:  make([]uint32, maxOrder+1),
		tails:  make([]uint32, maxOrder+1),
		counts: make([]uint64, maxOrder+1),
		next:   make([]uint32, count),
		prev:   make([]uint32, count),
		linked: make([]int8, count),
	}
	for o := range fl.heads {
		fl.heads[o] = nilIndex
		fl.tails[o] = nilIndex
	}
	for i := range fl.linked {
		fl.linked[i] = unlinked
	}
	return fl
}

// index converts pfn to a slot index, panicking when pfn is not managed.
func (fl *freeLists) index(op string, pfn PFN, order int) uint32 {
	if pfn < fl.base || uint64(pfn-fl.base) >= uint64(len(fl.linked)) {
		panic(violation(op, pfn, order, "pfn outside managed range"))
	}
	return uint32(pfn - fl.base)
}

func (fl *freeLists) pfn(idx uint32) PFN {
	return fl.base + PFN(idx)
}

// has reports whether pfn heads a free block at order.
func (fl *freeLists) has(pfn PFN, order int) bool {
	if pfn < fl.base || uint64(pfn-fl.base) >= uint64(len(fl.linked)) {
		return false
	}
	return fl.linked[pfn-fl.base] == int8(order)
}

// insert links pfn into the order's list, keeping it ascending, and returns
// the handle of the inserted entry. The handle is the block's own PFN: links
// are addressed by PFN, so callers can unlink or merge it without searching.
func (fl *freeLists) insert(pfn PFN, order int) PFN {
	idx := fl.index("insert", pfn, order)
	if cur := fl.linked[idx]; cur != unlinked {
		panic(violation("insert", pfn, order, "block already linked at order %d", cur))
	}

	// Ascending inserts (range seeding, splits) append without walking.
	if tail := fl.tails[order]; tail == nilIndex || tail < idx {
		fl.link(idx, tail, order)
		return pfn
	}

	prev := uint32(nilIndex)
	cur := fl.heads[order]
	for cur != nilIndex && cur < idx {
		prev = cur
		cur = fl.next[cur]
	}
	fl.link(idx, prev, order)
	return pfn
}

// insertAfter links pfn directly behind after, which must already be linked
// at order with no entry between the two positions.
func (fl *freeLists) insertAfter(after, pfn PFN, order int) {
	prev := fl.index("insert", after, order)
	idx := fl.index("insert", pfn, order)
	if fl.linked[prev] != int8(order) {
		panic(violation("insert", after, order, "anchor block not linked at this order"))
	}
	if cur := fl.linked[idx]; cur != unlinked {
		panic(violation("insert", pfn, order, "block already linked at order %d", cur))
	}
	if n := fl.next[prev]; n != nilIndex && n < idx {
		panic(violation("insert", pfn, order, "insert after 0x%x would break ordering", uint64(after)))
	}
	fl.link(idx, prev, order)
}

// link splices idx into the order's list behind prev (nilIndex: at the head).
func (fl *freeLists) link(idx, prev uint32, order int) {
	var next uint32
	if prev == nilIndex {
		next = fl.heads[order]
		fl.heads[order] = idx
	} else {
		next = fl.next[prev]
		fl.next[prev] = idx
	}

	fl.prev[idx] = prev
	fl.next[idx] = next
	if next == nilIndex {
		fl.tails[order] = idx
	} else {
		fl.prev[next] = idx
	}

	fl.linked[idx] = int8(order)
	fl.counts[order]++
}

// remove unlinks pfn from the order's list. The block must be present:
// callers only remove blocks they know to be free, so a miss panics.
func (fl *freeLists) remove(pfn PFN, order int) {
	idx := fl.index("remove", pfn, order)
	if cur := fl.linked[idx]; cur != int8(order) {
		if cur == unlinked {
			panic(violation("remove", pfn, order, "block not linked in any free list"))
		}
		panic(violation("remove", pfn, order, "block linked at order %d", cur))
	}

	prev, next := fl.prev[idx], fl.next[idx]
	if prev == nilIndex {
		fl.heads[order] = next
	} else {
		fl.next[prev] = next
	}
	if next == nilIndex {
		fl.tails[order] = prev
	} else {
		fl.prev[next] = prev
	}

	fl.next[idx] = nilIndex
	fl.prev[idx] = nilIndex
	fl.linked[idx] = unlinked
	fl.counts[order]--
}

// first returns the lowest free block at order.
func (fl *freeLists) first(order int) (PFN, bool) {
	if fl.heads[order] == nilIndex {
		return 0, false
	}
	return fl.pfn(fl.heads[order]), true
}

func (fl *freeLists) len(order int) uint64 {
	return fl.counts[order]
}

// each calls fn for every free block at order in ascending order until fn
// returns false.
func (fl *freeLists) each(order int, fn func(pfn PFN) bool) {
	for idx := fl.heads[order]; idx != nilIndex; idx = fl.next[idx] {
		if !fn(fl.pfn(idx)) {
			return
		}
	}
}

// blocks returns a copy of the order's free list.
func (fl *freeLists) blocks(order int) []PFN {
	out := make([]PFN, 0, fl.counts[order])
	fl.each(order, func(pfn PFN) bool {
		out = append(out, pfn)
		return true
	})
	return out
}
