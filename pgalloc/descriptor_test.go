package pgalloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/buddy"
)

func Test_NewTable_Errors(t *testing.T) {
	_, err := NewTable(0, 0)
	require.ErrorIs(t, err, ErrNoPages)

	_, err = NewTable(math.MaxUint64-2, 8)
	require.Error(t, err)
}

func Test_Table_Bijection(t *testing.T) {
	table, err := NewTable(100, 16)
	require.NoError(t, err)
	require.Equal(t, buddy.PFN(100), table.Base())
	require.Equal(t, uint64(16), table.Len())

	for pfn := buddy.PFN(100); pfn < 116; pfn++ {
		d, err := table.Descriptor(pfn)
		require.NoError(t, err)
		require.Equal(t, pfn, d.PFN())
		require.Equal(t, FlagReserved, d.Flags())
		require.Equal(t, -1, d.Order())

		back, err := table.PFN(d)
		require.NoError(t, err)
		require.Equal(t, pfn, back)
	}
}

func Test_Table_Foreign(t *testing.T) {
	table, err := NewTable(100, 16)
	require.NoError(t, err)
	other, err := NewTable(100, 16)
	require.NoError(t, err)

	_, err = table.Descriptor(99)
	require.ErrorIs(t, err, ErrForeignDescriptor)
	_, err = table.Descriptor(116)
	require.ErrorIs(t, err, ErrForeignDescriptor)

	// Same PFN, different table.
	d, err := other.Descriptor(104)
	require.NoError(t, err)
	_, err = table.PFN(d)
	require.ErrorIs(t, err, ErrForeignDescriptor)

	cp := *d
	_, err = other.PFN(&cp)
	require.ErrorIs(t, err, ErrForeignDescriptor)

	_, err = table.PFN(nil)
	require.ErrorIs(t, err, ErrForeignDescriptor)
}

func Test_Table_Span(t *testing.T) {
	table, err := NewTable(8, 8)
	require.NoError(t, err)

	descs, err := table.span(10, 4)
	require.NoError(t, err)
	require.Len(t, descs, 4)
	require.Equal(t, buddy.PFN(10), descs[0].PFN())

	_, err = table.span(14, 4)
	require.ErrorIs(t, err, ErrForeignDescriptor)
	_, err = table.span(4, 2)
	require.ErrorIs(t, err, ErrForeignDescriptor)

	require.Equal(t, uint64(8), table.count(FlagReserved))
}

func Test_Flags_String(t *testing.T) {
	require.Equal(t, "free", Flags(0).String())
	require.Equal(t, "reserved", FlagReserved.String())
	require.Equal(t, "allocated", FlagAllocated.String())
	require.Equal(t, "head", (FlagAllocated | FlagHead).String())
}
