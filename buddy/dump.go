package buddy

import (
	"io"
	"strconv"
	"strings"
)

// DumpState returns one line per order listing the start PFN (hex) of every
// free block at that order:
//
//	[0]
//	[1] 0 6
//	[2]
//	[3] 8
func (a *Allocator) DumpState() string {
	var sb strings.Builder
	_ = a.WriteState(&sb)
	return sb.String()
}

// WriteState writes the DumpState listing to w.
func (a *Allocator) WriteState(w io.Writer) error {
	var line []byte
	for order := 0; order <= a.maxOrder; order++ {
		line = append(line[:0], '[')
		line = strconv.AppendInt(line, int64(order), 10)
		line = append(line, ']')

		if a.free != nil {
			a.free.each(order, func(pfn PFN) bool {
				line = append(line, ' ')
				line = strconv.AppendUint(line, uint64(pfn), 16)
				return true
			})
		}

		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
