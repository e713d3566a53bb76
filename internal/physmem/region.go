// Package physmem provides the byte memory that backs a managed page range.
//
// A Region is one anonymous private mapping of pages*pageSize bytes. Pages are
// addressed by their index inside the region, not by PFN; pgalloc translates.
package physmem

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrBadSize indicates a zero page count or a page size that is not a
	// positive power of two.
	ErrBadSize = errors.New("physmem: bad region size")

	// ErrTooLarge indicates a region whose byte size does not fit in an int.
	ErrTooLarge = errors.New("physmem: region too large to map")

	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("physmem: region closed")
)

// Region is a contiguous run of pages of memory.
type Region struct {
	data     []byte
	pageSize int
	release  func() error
}

// Map allocates a zeroed region of pages pages of pageSize bytes each.
func Map(pages uint64, pageSize int) (*Region, error) {
	if pages == 0 || pageSize <= 0 || pageSize&(pageSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d pages of %d bytes", ErrBadSize, pages, pageSize)
	}
	if pages > uint64(math.MaxInt)/uint64(pageSize) {
		return nil, fmt.Errorf("%w: %d pages of %d bytes", ErrTooLarge, pages, pageSize)
	}

	data, release, err := mapAnon(int(pages) * pageSize)
	if err != nil {
		return nil, fmt.Errorf("physmem: map %d pages: %w", pages, err)
	}
	return &Region{data: data, pageSize: pageSize, release: release}, nil
}

// Pages returns the number of pages in the region.
func (r *Region) Pages() uint64 {
	if r.data == nil {
		return 0
	}
	return uint64(len(r.data) / r.pageSize)
}

// PageSize returns the size of one page in bytes.
func (r *Region) PageSize() int { return r.pageSize }

// Page returns the bytes of page i.
func (r *Region) Page(i uint64) []byte { return r.Span(i, 1) }

// Span returns the bytes of the n pages starting at page i. The slice is
// capped so appends cannot spill into the following page. Out-of-range
// spans panic like an out-of-range slice expression.
func (r *Region) Span(i, n uint64) []byte {
	if r.data == nil {
		panic(ErrClosed)
	}
	if i > r.Pages() || n > r.Pages()-i {
		panic(fmt.Sprintf("physmem: span [%d, %d) outside %d pages", i, i+n, r.Pages()))
	}
	lo := int(i) * r.pageSize
	hi := lo + int(n)*r.pageSize
	return r.data[lo:hi:hi]
}

// Discard tells the system the contents of n pages starting at page i are
// no longer needed. The pages stay mapped; reading them afterwards returns
// zeros on Linux and unspecified data elsewhere.
func (r *Region) Discard(i, n uint64) error {
	if r.data == nil {
		return ErrClosed
	}
	if n == 0 {
		return nil
	}
	return discard(r.Span(i, n))
}

// Close unmaps the region. Calling Close more than once is a no-op.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	err := r.release()
	r.data, r.release = nil, nil
	return err
}
