package buddy

import "math"

// PFN is a page-frame-number: the integer index of a physical page.
type PFN uint64

const (
	// DefaultMaxOrder is the largest order of the reference configuration
	// (2^18 pages, 1GB of 4KB pages).
	DefaultMaxOrder = 18

	// MaxSupportedOrder bounds Config.MaxOrder so that block sizes fit in a uint64.
	MaxSupportedOrder = 62
)

// Block is a free or allocated run of BlockSize(Order) pages starting at PFN.
type Block struct {
	PFN   PFN
	Order int
}

// Pages returns the number of pages in the block.
func (b Block) Pages() uint64 { return BlockSize(b.Order) }

// End returns the first PFN past the block.
func (b Block) End() PFN { return b.PFN + PFN(BlockSize(b.Order)) }

// BlockSize returns the number of pages in a block of the given order.
// For example, an order-2 block spans 1<<2 == 4 pages.
func BlockSize(order int) uint64 {
	return 1 << uint(order)
}

// IsAligned reports whether pfn is a valid start for a block of the given order.
func IsAligned(pfn PFN, order int) bool {
	return uint64(pfn)&(BlockSize(order)-1) == 0
}

// buddyOf returns the partner of the block (pfn, order).
//
// If pfn is aligned to the next order the buddy is the following block in this
// order, otherwise it is the preceding one. There is no buddy at MaxOrder, for
// misaligned blocks, or when the partner would reach outside the managed range:
// edge blocks never merge with pages the allocator does not own.
func (a *Allocator) buddyOf(pfn PFN, order int) (PFN, bool) {
	if order >= a.maxOrder || !IsAligned(pfn, order) {
		return 0, false
	}

	size := BlockSize(order)
	var b PFN
	if IsAligned(pfn, order+1) {
		if uint64(pfn) > math.MaxUint64-size {
			return 0, false
		}
		b = pfn + PFN(size)
	} else {
		b = pfn - PFN(size)
	}

	if !a.contains(b, size) {
		return 0, false
	}
	return b, true
}

// contains reports whether [pfn, pfn+pages) lies inside the managed range.
func (a *Allocator) contains(pfn PFN, pages uint64) bool {
	if pfn < a.base {
		return false
	}
	off := uint64(pfn - a.base)
	return off < a.count && pages <= a.count-off
}
