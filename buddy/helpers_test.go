package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestAllocator returns an allocator over [base, base+count) with empty
// free lists.
func newTestAllocator(t testing.TB, maxOrder int, base PFN, count uint64) *Allocator {
	t.Helper()
	a, err := New(&Config{MaxOrder: maxOrder})
	require.NoError(t, err)
	require.NoError(t, a.Init(base, count))
	return a
}

// newFullAllocator returns an allocator whose whole range is free.
func newFullAllocator(t testing.TB, maxOrder int, base PFN, count uint64) *Allocator {
	t.Helper()
	a := newTestAllocator(t, maxOrder, base, count)
	a.InsertRange(base, count)
	return a
}

// requireViolation runs fn and returns the *InvariantViolation it panics with.
func requireViolation(t *testing.T, fn func()) (v *InvariantViolation) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		var ok bool
		v, ok = r.(*InvariantViolation)
		require.True(t, ok, "panic value %T is not *InvariantViolation", r)
	}()
	fn()
	return nil
}

// freePagesIn counts free pages inside [lo, hi).
func freePagesIn(a *Allocator, lo, hi PFN) uint64 {
	var n uint64
	for order := 0; order <= a.maxOrder; order++ {
		for _, pfn := range a.FreeList(order) {
			end := pfn + PFN(BlockSize(order))
			s, e := max(pfn, lo), min(end, hi)
			if s < e {
				n += uint64(e - s)
			}
		}
	}
	return n
}

// requireLists asserts the full free-list contents, one slice per order.
func requireLists(t *testing.T, a *Allocator, want ...[]PFN) {
	t.Helper()
	require.Len(t, want, a.MaxOrder()+1, "one expectation per order")
	for order, pfns := range want {
		got := a.FreeList(order)
		if len(pfns) == 0 {
			require.Empty(t, got, "order %d", order)
			continue
		}
		require.Equal(t, pfns, got, "order %d", order)
	}
	require.NoError(t, a.Verify())
}
