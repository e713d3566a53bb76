package pgalloc

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/buddy"
)

// newTestManager returns a manager over [base, base+pages) with every page
// inserted.
func newTestManager(t *testing.T, base buddy.PFN, pages uint64, opts ...Option) *Manager {
	t.Helper()
	table, err := NewTable(base, pages)
	require.NoError(t, err)

	m, err := New(table, append([]Option{WithMaxOrder(3), WithVerify(true)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.InsertPageRange(descriptor(t, m, base), pages))
	return m
}

func descriptor(t *testing.T, m *Manager, pfn buddy.PFN) *Descriptor {
	t.Helper()
	d, err := m.Table().Descriptor(pfn)
	require.NoError(t, err)
	return d
}

// captureLogger returns a Debug-level text logger writing into the buffer.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// registerTest registers f under name for the duration of the test.
func registerTest(t *testing.T, name string, f Factory) {
	t.Helper()
	require.NoError(t, Register(name, f))
	t.Cleanup(func() {
		registry.Lock()
		delete(registry.factories, name)
		registry.Unlock()
	})
}

// stuckAlgorithm always hands out the block at PFN 0. A second allocation
// overlaps the first.
type stuckAlgorithm struct{ *buddy.Allocator }

func (stuckAlgorithm) Name() string { return "stuck" }

func (stuckAlgorithm) Allocate(order int) (buddy.Block, error) {
	return buddy.Block{PFN: 0, Order: order}, nil
}

// leakyAlgorithm over-reports free pages by one.
type leakyAlgorithm struct{ *buddy.Allocator }

func (leakyAlgorithm) Name() string { return "leaky" }

func (a leakyAlgorithm) FreePages() uint64 { return a.Allocator.FreePages() + 1 }

func wrapBuddy(wrap func(*buddy.Allocator) Algorithm) Factory {
	return func(maxOrder int) (Algorithm, error) {
		a, err := buddy.New(&buddy.Config{MaxOrder: maxOrder})
		if err != nil {
			return nil, err
		}
		return wrap(a), nil
	}
}
