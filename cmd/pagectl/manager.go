package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/buddy"
	"github.com/joshuapare/pagekit/cmd/pagectl/logger"
	"github.com/joshuapare/pagekit/pgalloc"
)

// managerFlags are the flags shared by commands that build a Manager.
type managerFlags struct {
	pages     uint64
	base      string
	maxOrder  int
	algorithm string
	mmap      bool
	verify    bool
}

func (f *managerFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.pages, "pages", 1024, "Number of pages to manage")
	cmd.Flags().StringVar(&f.base, "base", "0", "First PFN of the managed range (decimal or 0x hex)")
	cmd.Flags().IntVar(&f.maxOrder, "max-order", 10, "Largest block order")
	cmd.Flags().StringVar(&f.algorithm, "algorithm", buddy.Name, "Allocation algorithm")
	cmd.Flags().BoolVar(&f.mmap, "mmap", false, "Back the pages with anonymous memory")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "Check invariants after every operation")
}

// open creates a Manager over a fresh table. Every page starts reserved.
func (f *managerFlags) open() (*pgalloc.Manager, error) {
	base, err := parseNumber(f.base)
	if err != nil {
		return nil, fmt.Errorf("invalid --base: %w", err)
	}
	table, err := pgalloc.NewTable(buddy.PFN(base), f.pages)
	if err != nil {
		return nil, err
	}

	printVerbose("Managing %d pages at 0x%x (max order %d, %s)\n", f.pages, base, f.maxOrder, f.algorithm)
	return pgalloc.New(table,
		pgalloc.WithAlgorithm(f.algorithm),
		pgalloc.WithMaxOrder(f.maxOrder),
		pgalloc.WithLogger(logger.L),
		pgalloc.WithBackingMemory(f.mmap),
		pgalloc.WithVerify(f.verify),
	)
}

// parseNumber accepts decimal or 0x-prefixed hex.
func parseNumber(s string) (uint64, error) {
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		return strconv.ParseUint(rest, 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
