//go:build linux

package physmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Region_DiscardZeroes(t *testing.T) {
	r, err := Map(2, 4096)
	require.NoError(t, err)
	defer r.Close()

	p := r.Page(1)
	for i := range p {
		p[i] = 0xFF
	}
	require.NoError(t, r.Discard(1, 1))
	for i, b := range r.Page(1) {
		require.Zero(t, b, "byte %d", i)
	}
}
