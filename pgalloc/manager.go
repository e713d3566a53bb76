package pgalloc

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/pagekit/buddy"
	"github.com/joshuapare/pagekit/internal/physmem"
)

// Manager owns a descriptor table and the algorithm that allocates from it.
//
// All methods are safe for concurrent use. Contract violations detected by
// the algorithm (see buddy.InvariantViolation) are logged and re-panicked.
type Manager struct {
	mu sync.Mutex

	table  *Table
	alg    Algorithm
	log    *slog.Logger
	met    *metrics
	mem    *physmem.Region
	verify bool

	outstanding    map[buddy.PFN]int
	allocatedPages uint64
	free           atomic.Int64
	closed         bool
}

// New creates a Manager over table. Every page of the table starts out
// reserved: make pages available with InsertPageRange.
func New(table *Table, opts ...Option) (*Manager, error) {
	if table == nil || table.Len() == 0 {
		return nil, ErrNoPages
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	log := o.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	factory, err := Lookup(o.Algorithm)
	if err != nil {
		return nil, err
	}
	alg, err := factory(o.MaxOrder)
	if err != nil {
		return nil, fmt.Errorf("pgalloc: create %s allocator: %w", o.Algorithm, err)
	}
	if err := alg.Init(table.Base(), table.Len()); err != nil {
		return nil, fmt.Errorf("pgalloc: init %s allocator: %w", o.Algorithm, err)
	}

	for i := range table.descs {
		table.descs[i].flags, table.descs[i].order = FlagReserved, -1
	}

	m := &Manager{
		table:       table,
		alg:         alg,
		log:         log.With("component", "pgalloc", "algorithm", alg.Name()),
		verify:      o.Verify,
		outstanding: make(map[buddy.PFN]int),
	}

	m.met, err = newMetrics(o.Meter, alg.Name(), &m.free)
	if err != nil {
		return nil, fmt.Errorf("pgalloc: create instruments: %w", err)
	}

	if o.BackingMemory {
		m.mem, err = physmem.Map(table.Len(), PageSize)
		if err != nil {
			_ = m.met.close()
			return nil, fmt.Errorf("pgalloc: backing memory: %w", err)
		}
	}

	m.log.Info("page allocator initialized",
		"base", hexPFN(table.Base()),
		"pages", table.Len(),
		"max_order", alg.MaxOrder(),
		"backed", m.mem != nil,
	)
	return m, nil
}

// Table returns the descriptor table the manager allocates from.
func (m *Manager) Table() *Table { return m.table }

// Algorithm returns the name of the allocation algorithm.
func (m *Manager) Algorithm() string { return m.alg.Name() }

// AllocPages allocates a block of 1<<order pages and returns the descriptor
// of its first page.
func (m *Manager) AllocPages(order int) (*Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	defer m.observePanic("alloc")

	ctx := context.Background()
	blk, err := m.alg.Allocate(order)
	if err != nil {
		outcome := outcomeError
		if errors.Is(err, buddy.ErrExhausted) {
			outcome = outcomeExhausted
			m.log.Warn("allocation failed", "order", order, "free_pages", m.alg.FreePages())
		}
		m.met.allocated(ctx, order, 0, outcome)
		return nil, fmt.Errorf("pgalloc: allocate order %d: %w", order, err)
	}

	descs, err := m.table.span(blk.PFN, blk.Pages())
	if err != nil {
		panic(&buddy.InvariantViolation{Op: "alloc", PFN: blk.PFN, Order: order, Reason: err.Error()})
	}
	for i := range descs {
		if descs[i].flags != 0 {
			panic(&buddy.InvariantViolation{Op: "alloc", PFN: blk.PFN, Order: order,
				Reason: fmt.Sprintf("page 0x%x handed out while %s", uint64(descs[i].pfn), descs[i].flags)})
		}
		descs[i].flags = FlagAllocated
	}
	descs[0].flags |= FlagHead
	descs[0].order = int8(order)

	m.outstanding[blk.PFN] = order
	m.allocatedPages += blk.Pages()
	m.met.allocated(ctx, order, blk.Pages(), outcomeOK)
	m.afterMutation()

	return &descs[0], nil
}

// FreePages returns the block headed by d, allocated at order, to the
// allocator.
func (m *Manager) FreePages(d *Descriptor, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	defer m.observePanic("free")

	pfn, err := m.table.PFN(d)
	if err != nil {
		return err
	}
	if d.flags&FlagHead == 0 {
		return fmt.Errorf("%w: pfn 0x%x is %s", ErrNotAllocated, uint64(pfn), d.flags)
	}
	if int(d.order) != order {
		return fmt.Errorf("%w: pfn 0x%x allocated at order %d, freed at %d",
			ErrOrderMismatch, uint64(pfn), d.order, order)
	}

	m.alg.Free(pfn, order)

	pages := buddy.BlockSize(order)
	descs, _ := m.table.span(pfn, pages)
	for i := range descs {
		descs[i].flags, descs[i].order = 0, -1
	}
	if m.mem != nil {
		if err := m.mem.Discard(uint64(pfn-m.table.base), pages); err != nil {
			m.log.Warn("discard page memory", "pfn", hexPFN(pfn), "pages", pages, "error", err)
		}
	}

	delete(m.outstanding, pfn)
	m.allocatedPages -= pages
	m.met.freed(context.Background(), order, pages)
	m.afterMutation()
	return nil
}

// InsertPageRange makes the count pages starting at d available. Every page
// of the range must currently be reserved.
func (m *Manager) InsertPageRange(d *Descriptor, count uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	defer m.observePanic("insert range")

	pfn, descs, err := m.rangeOf(d, count)
	if err != nil {
		return err
	}
	for i := range descs {
		if descs[i].flags != FlagReserved {
			return fmt.Errorf("%w: pfn 0x%x is %s", ErrPageInUse, uint64(descs[i].pfn), descs[i].flags)
		}
	}

	m.alg.InsertRange(pfn, count)
	for i := range descs {
		descs[i].flags = 0
	}

	m.log.Debug("inserted page range", "start", hexPFN(pfn), "pages", count)
	m.met.ranged(context.Background(), "insert", count)
	m.afterMutation()
	return nil
}

// RemovePageRange withdraws the free pages among the count pages starting
// at d. Allocated pages in the range are left to their owners.
func (m *Manager) RemovePageRange(d *Descriptor, count uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	defer m.observePanic("remove range")

	pfn, descs, err := m.rangeOf(d, count)
	if err != nil {
		return err
	}

	before := m.alg.FreePages()
	m.alg.RemoveRange(pfn, count)
	for i := range descs {
		if descs[i].flags&FlagAllocated == 0 {
			descs[i].flags = FlagReserved
		}
	}

	m.log.Debug("removed page range", "start", hexPFN(pfn), "pages", count,
		"withdrawn", before-m.alg.FreePages())
	m.met.ranged(context.Background(), "remove", count)
	m.afterMutation()
	return nil
}

func (m *Manager) rangeOf(d *Descriptor, count uint64) (buddy.PFN, []Descriptor, error) {
	pfn, err := m.table.PFN(d)
	if err != nil {
		return 0, nil, err
	}
	descs, err := m.table.span(pfn, count)
	if err != nil {
		return 0, nil, err
	}
	return pfn, descs, nil
}

// DumpState returns the algorithm's free-list listing and logs it at Debug,
// one record per order after a "BUDDY STATE:" header.
func (m *Manager) DumpState() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.alg.DumpState()
	m.log.Debug("BUDDY STATE:")
	for line := range strings.Lines(state) {
		m.log.Debug(strings.TrimSuffix(line, "\n"))
	}
	return state
}

// Verify checks the algorithm invariants (when it implements Verifier) and
// that every page is accounted for exactly once.
func (m *Manager) Verify() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verifyLocked()
}

func (m *Manager) verifyLocked() error {
	if v, ok := m.alg.(Verifier); ok {
		if err := v.Verify(); err != nil {
			return err
		}
	}

	free := m.alg.FreePages()
	reserved := m.table.count(FlagReserved)
	allocated := m.table.count(FlagAllocated)
	if allocated != m.allocatedPages {
		return fmt.Errorf("pgalloc: %d pages flagged allocated, %d handed out", allocated, m.allocatedPages)
	}
	if free+reserved+allocated != m.table.Len() {
		return fmt.Errorf("pgalloc: pages not conserved: %d free + %d reserved + %d allocated != %d",
			free, reserved, allocated, m.table.Len())
	}
	return nil
}

// Stats is a snapshot of a Manager's page accounting.
type Stats struct {
	Algorithm      string    `json:"algorithm"`
	MaxOrder       int       `json:"max_order"`
	Base           buddy.PFN `json:"base"`
	TotalPages     uint64    `json:"total_pages"`
	FreePages      uint64    `json:"free_pages"`
	AllocatedPages uint64    `json:"allocated_pages"`
	ReservedPages  uint64    `json:"reserved_pages"`
	Outstanding    int       `json:"outstanding_blocks"`
	FreeBlocks     []int     `json:"free_blocks"` // indexed by order
}

// Stats returns the current page accounting.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{
		Algorithm:      m.alg.Name(),
		MaxOrder:       m.alg.MaxOrder(),
		Base:           m.table.Base(),
		TotalPages:     m.table.Len(),
		FreePages:      m.alg.FreePages(),
		AllocatedPages: m.allocatedPages,
		ReservedPages:  m.table.count(FlagReserved),
		Outstanding:    len(m.outstanding),
		FreeBlocks:     make([]int, m.alg.MaxOrder()+1),
	}
	for order := range st.FreeBlocks {
		st.FreeBlocks[order] = m.alg.FreeBlocks(order)
	}
	return st
}

// Outstanding returns the blocks currently allocated, by ascending PFN.
func (m *Manager) Outstanding() []buddy.Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	blocks := make([]buddy.Block, 0, len(m.outstanding))
	for pfn, order := range m.outstanding {
		blocks = append(blocks, buddy.Block{PFN: pfn, Order: order})
	}
	slices.SortFunc(blocks, func(a, b buddy.Block) int { return cmp.Compare(a.PFN, b.PFN) })
	return blocks
}

// Bytes returns the memory of the block headed by d, allocated at order.
// The manager must have been created WithBackingMemory(true).
func (m *Manager) Bytes(d *Descriptor, order int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.mem == nil {
		return nil, ErrNoBackingMemory
	}

	pfn, err := m.table.PFN(d)
	if err != nil {
		return nil, err
	}
	if d.flags&FlagHead == 0 {
		return nil, fmt.Errorf("%w: pfn 0x%x is %s", ErrNotAllocated, uint64(pfn), d.flags)
	}
	if int(d.order) != order {
		return nil, fmt.Errorf("%w: pfn 0x%x allocated at order %d, requested %d",
			ErrOrderMismatch, uint64(pfn), d.order, order)
	}
	return m.mem.Span(uint64(pfn-m.table.base), buddy.BlockSize(order)), nil
}

// Close releases the backing memory and instruments. Calling Close more than
// once is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	if err := m.met.close(); err != nil {
		errs = append(errs, err)
	}
	if m.mem != nil {
		if err := m.mem.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if n := len(m.outstanding); n > 0 {
		m.log.Warn("closing with outstanding blocks", "blocks", n, "pages", m.allocatedPages)
	}
	return errors.Join(errs...)
}

// afterMutation publishes the free page count and, in verify mode, checks
// the invariants. Callers hold mu.
func (m *Manager) afterMutation() {
	m.free.Store(int64(m.alg.FreePages()))
	if m.verify {
		if err := m.verifyLocked(); err != nil {
			panic(err)
		}
	}
}

// observePanic logs a panic escaping op and re-raises it.
func (m *Manager) observePanic(op string) {
	if r := recover(); r != nil {
		attrs := []any{"op", op, "panic", r}
		var v *buddy.InvariantViolation
		if err, ok := r.(error); ok && errors.As(err, &v) {
			attrs = append(attrs, "pfn", hexPFN(v.PFN), "order", v.Order)
		}
		m.log.Error("page allocator invariant violated", attrs...)
		panic(r)
	}
}

func hexPFN(pfn buddy.PFN) string {
	return fmt.Sprintf("0x%x", uint64(pfn))
}
