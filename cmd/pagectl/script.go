package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joshuapare/pagekit/buddy"
	"github.com/joshuapare/pagekit/pgalloc"
)

// command is one parsed script line.
type command struct {
	Line int
	Op   string
	Args []uint64
}

func (c command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Op)
	for _, a := range c.Args {
		fmt.Fprintf(&sb, " %d", a)
	}
	return sb.String()
}

// arity is the argument count of each script command.
var arity = map[string]int{
	"insert": 2, // insert <start> <count>
	"remove": 2, // remove <start> <count>
	"alloc":  1, // alloc <order>
	"free":   2, // free <pfn> <order>
	"dump":   0,
	"verify": 0,
	"stats":  0,
}

// parseScript reads one command per line. Blank lines and everything after
// '#' are ignored.
func parseScript(r io.Reader) ([]command, error) {
	var cmds []command
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		op := strings.ToLower(fields[0])
		n, ok := arity[op]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown command %q", line, fields[0])
		}
		if len(fields)-1 != n {
			return nil, fmt.Errorf("line %d: %s takes %d argument(s), got %d", line, op, n, len(fields)-1)
		}

		c := command{Line: line, Op: op, Args: make([]uint64, n)}
		for i, f := range fields[1:] {
			v, err := parseNumber(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: bad number %q", line, op, f)
			}
			c.Args[i] = v
		}
		cmds = append(cmds, c)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cmds, nil
}

// stepErrors are failures a script reports and continues past.
var stepErrors = []error{
	buddy.ErrExhausted,
	buddy.ErrBadOrder,
	pgalloc.ErrNotAllocated,
	pgalloc.ErrOrderMismatch,
	pgalloc.ErrPageInUse,
	pgalloc.ErrForeignDescriptor,
}

func isStepError(err error) bool {
	for _, target := range stepErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// execCommand applies c to m and returns the text to print.
func execCommand(m *pgalloc.Manager, c command) (string, error) {
	switch c.Op {
	case "insert", "remove":
		d, err := m.Table().Descriptor(buddy.PFN(c.Args[0]))
		if err != nil {
			return "", err
		}
		if c.Op == "insert" {
			err = m.InsertPageRange(d, c.Args[1])
		} else {
			err = m.RemovePageRange(d, c.Args[1])
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s 0x%x +%d\n", c.Op, c.Args[0], c.Args[1]), nil

	case "alloc":
		order, err := toOrder(c.Args[0])
		if err != nil {
			return "", err
		}
		d, err := m.AllocPages(order)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("alloc %d -> 0x%x\n", order, uint64(d.PFN())), nil

	case "free":
		order, err := toOrder(c.Args[1])
		if err != nil {
			return "", err
		}
		d, err := m.Table().Descriptor(buddy.PFN(c.Args[0]))
		if err != nil {
			return "", err
		}
		if err := m.FreePages(d, order); err != nil {
			return "", err
		}
		return fmt.Sprintf("free 0x%x %d\n", c.Args[0], order), nil

	case "dump":
		return m.DumpState(), nil

	case "verify":
		if err := m.Verify(); err != nil {
			return "", err
		}
		return "verify ok\n", nil

	case "stats":
		return m.Report().String(), nil
	}
	return "", fmt.Errorf("unknown command %q", c.Op)
}

func toOrder(v uint64) (int, error) {
	if v > buddy.MaxSupportedOrder {
		return 0, fmt.Errorf("%w: %d", buddy.ErrBadOrder, v)
	}
	return int(v), nil
}
