package buddy

import "fmt"

// Name is the name the buddy algorithm registers under.
const Name = "buddy"

// Config controls the shape of an Allocator.
type Config struct {
	// MaxOrder is the largest block order served; blocks span at most
	// 1<<MaxOrder pages. Must be in [0, MaxSupportedOrder].
	MaxOrder int
}

// DefaultConfig is used when New is given a nil config.
var DefaultConfig = Config{MaxOrder: DefaultMaxOrder}

// Allocator is a buddy page allocator over a fixed range of PFNs.
//
// The zero value is not usable; create one with New and call Init before
// use. An Allocator has no internal synchronization: callers must serialize
// access (pgalloc.Manager holds a mutex for this).
type Allocator struct {
	maxOrder int

	base  PFN
	count uint64
	free  *freeLists

	stats Stats
}

// New creates an allocator with the given config (nil for DefaultConfig).
func New(config *Config) (*Allocator, error) {
	if config == nil {
		config = &DefaultConfig
	}
	if config.MaxOrder < 0 || config.MaxOrder > MaxSupportedOrder {
		return nil, fmt.Errorf("%w: max order %d not in [0, %d]",
			ErrBadConfig, config.MaxOrder, MaxSupportedOrder)
	}
	return &Allocator{maxOrder: config.MaxOrder}, nil
}

// Name returns the algorithm name, "buddy".
func (a *Allocator) Name() string { return Name }

// MaxOrder returns the largest order this allocator serves.
func (a *Allocator) MaxOrder() int { return a.maxOrder }

// Init discards all free lists and prepares the allocator to manage the
// count pages starting at base. It does not make any page available:
// populate the free lists with InsertRange.
func (a *Allocator) Init(base PFN, count uint64) error {
	a.free = nil
	a.base, a.count = 0, 0
	a.stats = Stats{}

	if count == 0 {
		return fmt.Errorf("%w: empty page range", ErrInitFailed)
	}
	if count > maxPages {
		return fmt.Errorf("%w: %d pages exceeds limit of %d", ErrInitFailed, count, uint64(maxPages))
	}
	if uint64(base)+count < uint64(base) {
		return fmt.Errorf("%w: range at 0x%x overflows", ErrInitFailed, uint64(base))
	}

	a.base, a.count = base, count
	a.free = newFreeLists(base, count, a.maxOrder)
	return nil
}

// Range returns the managed range as a start PFN and page count.
func (a *Allocator) Range() (PFN, uint64) { return a.base, a.count }

// Allocate removes a block of exactly 1<<order pages from the free lists.
//
// The lowest-addressed block of the smallest non-empty order >= order is
// taken and split down to size. If no such block exists the free lists are
// left untouched and ErrExhausted is returned.
func (a *Allocator) Allocate(order int) (Block, error) {
	if a.free == nil {
		return Block{}, ErrNotInitialized
	}
	if order < 0 || order > a.maxOrder {
		return Block{}, fmt.Errorf("%w: %d", ErrBadOrder, order)
	}
	a.stats.AllocCalls++

	found := order
	for found <= a.maxOrder && a.free.len(found) == 0 {
		found++
	}
	if found > a.maxOrder {
		a.stats.Exhausted++
		return Block{}, fmt.Errorf("%w: order %d", ErrExhausted, order)
	}

	pfn, _ := a.free.first(found)
	for o := found; o > order; o-- {
		pfn = a.splitBlock(pfn, o)
	}
	a.free.remove(pfn, order)

	return Block{PFN: pfn, Order: order}, nil
}

// Free returns the block (pfn, order) to the free lists and merges it with
// its free buddies.
//
// Freeing at the wrong granularity (pfn not aligned to order), outside the
// managed range, or a block that is already free panics with an
// *InvariantViolation.
func (a *Allocator) Free(pfn PFN, order int) {
	a.stats.FreeCalls++
	a.release("free", pfn, order)
}

// release validates (pfn, order), links it and coalesces upward.
func (a *Allocator) release(op string, pfn PFN, order int) {
	if a.free == nil {
		panic(violation(op, pfn, order, "allocator not initialized"))
	}
	if order < 0 || order > a.maxOrder {
		panic(violation(op, pfn, order, "order not in [0, %d]", a.maxOrder))
	}
	if !IsAligned(pfn, order) {
		panic(violation(op, pfn, order, "block not aligned to its order"))
	}
	if !a.contains(pfn, BlockSize(order)) {
		panic(violation(op, pfn, order, "block outside managed range [0x%x, 0x%x)",
			uint64(a.base), uint64(a.base)+a.count))
	}

	a.coalesce(a.free.insert(pfn, order), order)
}
