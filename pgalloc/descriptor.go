package pgalloc

import (
	"fmt"

	"github.com/joshuapare/pagekit/buddy"
)

// PageSize is the size of one page in bytes.
const PageSize = 4096

// Flags describes the state of one page.
type Flags uint8

const (
	// FlagReserved marks a page that is not available to the allocator:
	// never inserted, or withdrawn with RemovePageRange.
	FlagReserved Flags = 1 << iota

	// FlagAllocated marks every page of an allocated block.
	FlagAllocated

	// FlagHead marks the first page of an allocated block. Its descriptor
	// carries the block order.
	FlagHead
)

func (f Flags) String() string {
	switch {
	case f&FlagHead != 0:
		return "head"
	case f&FlagAllocated != 0:
		return "allocated"
	case f&FlagReserved != 0:
		return "reserved"
	default:
		return "free"
	}
}

// Descriptor is the per-page record of a Table.
type Descriptor struct {
	pfn   buddy.PFN
	flags Flags
	order int8
}

// PFN returns the page frame number the descriptor stands for.
func (d *Descriptor) PFN() buddy.PFN { return d.pfn }

// Flags returns the page state.
func (d *Descriptor) Flags() Flags { return d.flags }

// Order returns the block order of an allocated head page, or -1.
func (d *Descriptor) Order() int {
	if d.flags&FlagHead == 0 {
		return -1
	}
	return int(d.order)
}

// Table holds one Descriptor per page of [base, base+n): PFN(Descriptor(p))
// == p for every managed p.
type Table struct {
	base  buddy.PFN
	descs []Descriptor
}

// NewTable creates the descriptors for n pages starting at base. Every
// page starts out reserved.
func NewTable(base buddy.PFN, n uint64) (*Table, error) {
	if n == 0 {
		return nil, ErrNoPages
	}
	if uint64(base)+n < uint64(base) {
		return nil, fmt.Errorf("pgalloc: table at 0x%x with %d pages overflows", uint64(base), n)
	}

	t := &Table{base: base, descs: make([]Descriptor, n)}
	for i := range t.descs {
		t.descs[i] = Descriptor{pfn: base + buddy.PFN(i), flags: FlagReserved, order: -1}
	}
	return t, nil
}

// Base returns the first PFN of the table.
func (t *Table) Base() buddy.PFN { return t.base }

// Len returns the number of pages in the table.
func (t *Table) Len() uint64 { return uint64(len(t.descs)) }

// Descriptor returns the descriptor for pfn.
func (t *Table) Descriptor(pfn buddy.PFN) (*Descriptor, error) {
	if pfn < t.base || uint64(pfn-t.base) >= t.Len() {
		return nil, fmt.Errorf("%w: pfn 0x%x", ErrForeignDescriptor, uint64(pfn))
	}
	return &t.descs[pfn-t.base], nil
}

// PFN returns the page frame number of d, which must be one of t's own
// descriptors.
func (t *Table) PFN(d *Descriptor) (buddy.PFN, error) {
	if d == nil {
		return 0, fmt.Errorf("%w: nil descriptor", ErrForeignDescriptor)
	}
	if d.pfn < t.base || uint64(d.pfn-t.base) >= t.Len() || &t.descs[d.pfn-t.base] != d {
		return 0, fmt.Errorf("%w: pfn 0x%x", ErrForeignDescriptor, uint64(d.pfn))
	}
	return d.pfn, nil
}

// span returns the descriptors of [pfn, pfn+n).
func (t *Table) span(pfn buddy.PFN, n uint64) ([]Descriptor, error) {
	off := uint64(pfn - t.base)
	if pfn < t.base || off > t.Len() || n > t.Len()-off {
		return nil, fmt.Errorf("%w: range [0x%x, +%d) outside table", ErrForeignDescriptor, uint64(pfn), n)
	}
	return t.descs[off : off+n], nil
}

// count returns the number of pages with all bits of f set.
func (t *Table) count(f Flags) uint64 {
	var n uint64
	for i := range t.descs {
		if t.descs[i].flags&f == f {
			n++
		}
	}
	return n
}
