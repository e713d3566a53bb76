package main

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/buddy"
	"github.com/joshuapare/pagekit/cmd/pagectl/logger"
	"github.com/joshuapare/pagekit/pgalloc"
)

var (
	simFlags         managerFlags
	simOps           int
	simSeed          int64
	simMaxAllocOrder int
	simVerifyEvery   int
)

func init() {
	cmd := newSimulateCmd()
	simFlags.register(cmd)
	cmd.Flags().IntVar(&simOps, "ops", 10000, "Number of allocate/free operations")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&simMaxAllocOrder, "max-alloc-order", 4, "Largest order requested")
	cmd.Flags().IntVar(&simVerifyEvery, "verify-every", 1000, "Check invariants every N operations (0 disables)")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded random allocate/free workload",
		Long: `The simulate command makes every page available, then runs a random mix
of allocations and frees. It checks page conservation and the free-list
invariants along the way, prints the state at the end of the workload, and
finally frees everything and checks that the initial layout is restored.

Example:
  pagectl simulate --pages 65536 --max-order 12 --ops 100000
  pagectl simulate --seed 7 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(&simFlags, simOps, simSeed, simMaxAllocOrder, simVerifyEvery)
		},
	}
}

type simulateResult struct {
	Seed      int64          `json:"seed"`
	Ops       int            `json:"ops"`
	Allocs    int            `json:"allocs"`
	Frees     int            `json:"frees"`
	Exhausted int            `json:"exhausted"`
	Verified  int            `json:"verified"`
	Restored  bool           `json:"restored"`
	Report    pgalloc.Report `json:"report"`
}

type liveBlock struct {
	d     *pgalloc.Descriptor
	order int
}

func runSimulate(f *managerFlags, ops int, seed int64, maxAllocOrder, verifyEvery int) (err error) {
	if ops < 0 {
		return fmt.Errorf("--ops must not be negative")
	}
	if verifyEvery < 0 {
		return fmt.Errorf("--verify-every must not be negative")
	}
	if maxAllocOrder < 0 || maxAllocOrder > f.maxOrder {
		return fmt.Errorf("--max-alloc-order %d not in [0, %d]", maxAllocOrder, f.maxOrder)
	}

	m, err := f.open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); err == nil {
			err = cerr
		}
	}()

	table := m.Table()
	first, err := table.Descriptor(table.Base())
	if err != nil {
		return err
	}
	if err := m.InsertPageRange(first, table.Len()); err != nil {
		return err
	}
	initial := m.DumpState()

	res := simulateResult{Seed: seed, Ops: ops}
	rng := rand.New(rand.NewSource(seed))
	var live []liveBlock
	var livePages uint64

	for i := range ops {
		if len(live) == 0 || rng.Intn(2) == 0 {
			order := rng.Intn(maxAllocOrder + 1)
			d, err := m.AllocPages(order)
			switch {
			case errors.Is(err, buddy.ErrExhausted):
				res.Exhausted++
			case err != nil:
				return fmt.Errorf("op %d: %w", i, err)
			default:
				live = append(live, liveBlock{d: d, order: order})
				livePages += buddy.BlockSize(order)
				res.Allocs++
			}
		} else {
			j := rng.Intn(len(live))
			blk := live[j]
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			if err := m.FreePages(blk.d, blk.order); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			livePages -= buddy.BlockSize(blk.order)
			res.Frees++
		}

		if verifyEvery > 0 && (i+1)%verifyEvery == 0 {
			if err := checkSimulation(m, livePages); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			res.Verified++
		}
	}

	if err := checkSimulation(m, livePages); err != nil {
		return err
	}
	res.Verified++
	res.Report = m.Report()
	logger.Info("simulation finished", "ops", ops, "allocs", res.Allocs, "frees", res.Frees,
		"exhausted", res.Exhausted, "outstanding", len(live))

	for _, blk := range live {
		if err := m.FreePages(blk.d, blk.order); err != nil {
			return err
		}
	}
	res.Restored = m.DumpState() == initial
	if !res.Restored {
		return fmt.Errorf("free lists not restored after freeing all blocks")
	}

	if jsonOut {
		return printJSON(res)
	}
	printInfo("%d ops (seed %d): %d allocs, %d frees, %d exhausted, %d checks passed\n",
		res.Ops, res.Seed, res.Allocs, res.Frees, res.Exhausted, res.Verified)
	printInfo("%s", res.Report)
	printVerbose("All blocks freed; initial free lists restored\n")
	return nil
}

// checkSimulation verifies invariants and that the pages the workload holds
// match the manager's accounting.
func checkSimulation(m *pgalloc.Manager, livePages uint64) error {
	if err := m.Verify(); err != nil {
		return err
	}
	st := m.Stats()
	if st.AllocatedPages != livePages {
		return fmt.Errorf("manager reports %d allocated pages, workload holds %d", st.AllocatedPages, livePages)
	}
	if st.FreePages+st.AllocatedPages+st.ReservedPages != st.TotalPages {
		return fmt.Errorf("pages not conserved: %+v", st)
	}
	return nil
}
