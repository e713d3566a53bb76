package pgalloc

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/joshuapare/pagekit/buddy"
)

// Options configures a Manager. Build it with the With* functions.
type Options struct {
	// Algorithm is the registered algorithm name. Default: "buddy".
	Algorithm string

	// MaxOrder is the largest block order. Default: buddy.DefaultMaxOrder.
	MaxOrder int

	// Logger receives diagnostics. Default: discard.
	Logger *slog.Logger

	// Meter creates the allocator instruments. Default: no-op.
	Meter metric.Meter

	// BackingMemory maps real memory for the table's pages so Bytes can
	// hand out page contents.
	BackingMemory bool

	// Verify runs the algorithm's invariant check after every mutating call
	// and panics on the first violation. Expensive; meant for tests.
	Verify bool
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the options New starts from.
func DefaultOptions() Options {
	return Options{
		Algorithm: buddy.Name,
		MaxOrder:  buddy.DefaultMaxOrder,
	}
}

// WithAlgorithm selects the algorithm by registered name.
func WithAlgorithm(name string) Option {
	return func(o *Options) { o.Algorithm = name }
}

// WithMaxOrder sets the largest block order.
func WithMaxOrder(order int) Option {
	return func(o *Options) { o.MaxOrder = order }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMeter sets the meter instruments are created from.
func WithMeter(m metric.Meter) Option {
	return func(o *Options) { o.Meter = m }
}

// WithBackingMemory maps page memory for the table.
func WithBackingMemory(on bool) Option {
	return func(o *Options) { o.BackingMemory = on }
}

// WithVerify enables invariant checking after every mutation.
func WithVerify(on bool) Option {
	return func(o *Options) { o.Verify = on }
}
