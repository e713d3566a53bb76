package pgalloc

import (
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/pagekit/buddy"
)

// OrderReport is the free-list summary of one order.
type OrderReport struct {
	Order  int    `json:"order"`
	Blocks int    `json:"blocks"`
	Pages  uint64 `json:"pages"`
}

// Report is a human-oriented summary of a Manager's state.
type Report struct {
	Stats  Stats         `json:"stats"`
	Orders []OrderReport `json:"orders"`
}

// Report builds a Report from the current state.
func (m *Manager) Report() Report {
	return NewReport(m.Stats())
}

// NewReport derives the per-order summary from st.
func NewReport(st Stats) Report {
	r := Report{Stats: st, Orders: make([]OrderReport, len(st.FreeBlocks))}
	for order, n := range st.FreeBlocks {
		r.Orders[order] = OrderReport{
			Order:  order,
			Blocks: n,
			Pages:  uint64(n) * buddy.BlockSize(order),
		}
	}
	return r
}

// Render writes the report to w with digit grouping for tag.
//
//	algorithm   buddy (max order 3)
//	pages       1,024 total, 1,000 free, 24 allocated, 0 reserved
//	memory      4,194,304 bytes
//	outstanding 3 blocks
//	order   blocks      pages
//	    0        0          0
func (r Report) Render(w io.Writer, tag language.Tag) error {
	pw := &printWriter{p: message.NewPrinter(tag), w: w}
	st := r.Stats

	pw.printf("algorithm   %s (max order %d)\n", st.Algorithm, st.MaxOrder)
	pw.printf("pages       %d total, %d free, %d allocated, %d reserved\n",
		st.TotalPages, st.FreePages, st.AllocatedPages, st.ReservedPages)
	pw.printf("memory      %d bytes\n", st.TotalPages*PageSize)
	pw.printf("outstanding %d blocks\n", st.Outstanding)
	pw.printf("%-5s %8s %10s\n", "order", "blocks", "pages")
	for _, o := range r.Orders {
		pw.printf("%5d %8d %10d\n", o.Order, o.Blocks, o.Pages)
	}
	return pw.err
}

// printWriter keeps the first write error and drops later output.
type printWriter struct {
	p   *message.Printer
	w   io.Writer
	err error
}

func (pw *printWriter) printf(format string, args ...any) {
	if pw.err != nil {
		return
	}
	_, pw.err = pw.p.Fprintf(pw.w, format, args...)
}

// String renders the report in English.
func (r Report) String() string {
	var sb strings.Builder
	_ = r.Render(&sb, language.English)
	return sb.String()
}
