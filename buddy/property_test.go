package buddy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test_Property_RandomOps drives a random mix of allocate, free and range
// removal and checks after every step that pages are conserved and the free
// lists stay well formed.
func Test_Property_RandomOps(t *testing.T) {
	for _, tc := range []struct {
		name     string
		maxOrder int
		base     PFN
		count    uint64
	}{
		{"pow2", 6, 0, 256},
		{"odd_base", 5, 13, 300},
		{"small_max_order", 2, 64, 128},
	} {
		t.Run(tc.name, func(t *testing.T) {
			runRandomOps(t, rand.New(rand.NewSource(42)), tc.maxOrder, tc.base, tc.count)
		})
	}
}

func runRandomOps(t *testing.T, rng *rand.Rand, maxOrder int, base PFN, count uint64) {
	a := newFullAllocator(t, maxOrder, base, count)

	var (
		live      []Block
		livePages uint64
		removed   uint64
	)

	for step := range 2000 {
		switch op := rng.Intn(10); {
		case op < 5:
			order := rng.Intn(maxOrder + 1)
			before := a.DumpState()
			blk, err := a.Allocate(order)
			if err != nil {
				require.ErrorIs(t, err, ErrExhausted, "step %d", step)
				require.Equal(t, before, a.DumpState(), "step %d: failed allocate changed state", step)
				continue
			}
			require.Equal(t, order, blk.Order)
			require.True(t, IsAligned(blk.PFN, order), "step %d: %+v", step, blk)
			require.True(t, a.contains(blk.PFN, blk.Pages()), "step %d: %+v", step, blk)
			_, _, overlap := a.firstIntersecting(blk.PFN, blk.End())
			require.False(t, overlap, "step %d: allocated block %+v still free", step, blk)

			// Allocate then free of the same block is a no-op on the lists.
			if rng.Intn(4) == 0 {
				after := a.DumpState()
				a.Free(blk.PFN, blk.Order)
				require.Equal(t, before, a.DumpState(), "step %d: round trip", step)
				blk2, err := a.Allocate(order)
				require.NoError(t, err)
				require.Equal(t, blk, blk2)
				require.Equal(t, after, a.DumpState())
			}

			live = append(live, blk)
			livePages += blk.Pages()

		case op < 9:
			if len(live) == 0 {
				continue
			}
			i := rng.Intn(len(live))
			blk := live[i]
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			a.Free(blk.PFN, blk.Order)
			livePages -= blk.Pages()

		default:
			start := base + PFN(rng.Int63n(int64(count)))
			n := uint64(rng.Int63n(32)) + 1
			lo, hi, _ := a.clip(start, n)
			inRange := freePagesIn(a, lo, hi)
			before := a.FreePages()

			a.RemoveRange(start, n)
			require.Equal(t, before-inRange, a.FreePages(), "step %d", step)
			require.Zero(t, freePagesIn(a, lo, hi), "step %d", step)
			removed += inRange
		}

		require.Equal(t, count, a.FreePages()+livePages+removed, "step %d: pages not conserved", step)
		require.NoError(t, a.Verify(), "step %d", step)
	}

	// Everything handed out must still be disjoint from the free lists.
	for _, blk := range live {
		_, _, overlap := a.firstIntersecting(blk.PFN, blk.End())
		require.False(t, overlap, "live block %+v overlaps free lists", blk)
	}

	for _, blk := range live {
		a.Free(blk.PFN, blk.Order)
	}
	require.Equal(t, count-removed, a.FreePages())
	require.NoError(t, a.Verify())
}

// Test_Property_FullCycleRestores frees everything in a random order and
// expects the exact initial layout back.
func Test_Property_FullCycleRestores(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := newFullAllocator(t, 5, 5, 200)
	initial := a.DumpState()

	for round := range 20 {
		var live []Block
		for {
			blk, err := a.Allocate(rng.Intn(4))
			if err != nil {
				break
			}
			live = append(live, blk)
		}
		rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })
		for _, blk := range live {
			a.Free(blk.PFN, blk.Order)
		}
		require.Equal(t, initial, a.DumpState(), "round %d", round)
	}
}
