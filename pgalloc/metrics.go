package pgalloc

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instrument names.
const (
	metricAllocations    = "pagekit.pgalloc.allocations"
	metricFrees          = "pagekit.pgalloc.frees"
	metricRangeOps       = "pagekit.pgalloc.range_ops"
	metricPagesAllocated = "pagekit.pgalloc.pages.allocated"
	metricPagesFree      = "pagekit.pgalloc.pages.free"
)

// Allocation outcomes recorded on the allocations counter.
const (
	outcomeOK        = "ok"
	outcomeExhausted = "exhausted"
	outcomeError     = "error"
)

// metrics holds the Manager's instruments.
type metrics struct {
	allocations    metric.Int64Counter
	frees          metric.Int64Counter
	rangeOps       metric.Int64Counter
	pagesAllocated metric.Int64UpDownCounter
	pagesFree      metric.Int64ObservableGauge

	registration metric.Registration
}

// newMetrics creates the instruments on meter (no-op when nil). The free
// pages gauge reports *free at collection time.
func newMetrics(meter metric.Meter, algorithm string, free *atomic.Int64) (*metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("pgalloc")
	}

	allocations, err := meter.Int64Counter(
		metricAllocations,
		metric.WithDescription("Block allocation requests by order and outcome."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	frees, err := meter.Int64Counter(
		metricFrees,
		metric.WithDescription("Blocks returned to the allocator by order."),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	rangeOps, err := meter.Int64Counter(
		metricRangeOps,
		metric.WithDescription("Pages passed to range insert and remove calls."),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	pagesAllocated, err := meter.Int64UpDownCounter(
		metricPagesAllocated,
		metric.WithDescription("Pages currently held by callers."),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	pagesFree, err := meter.Int64ObservableGauge(
		metricPagesFree,
		metric.WithDescription("Pages currently in the free lists."),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	algAttr := metric.WithAttributes(attribute.String("algorithm", algorithm))
	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(pagesFree, free.Load(), algAttr)
		return nil
	}, pagesFree)
	if err != nil {
		return nil, err
	}

	return &metrics{
		allocations:    allocations,
		frees:          frees,
		rangeOps:       rangeOps,
		pagesAllocated: pagesAllocated,
		pagesFree:      pagesFree,
		registration:   registration,
	}, nil
}

func (m *metrics) allocated(ctx context.Context, order int, pages uint64, outcome string) {
	m.allocations.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("order", order),
		attribute.String("outcome", outcome),
	))
	if outcome == outcomeOK {
		m.pagesAllocated.Add(ctx, int64(pages))
	}
}

func (m *metrics) freed(ctx context.Context, order int, pages uint64) {
	m.frees.Add(ctx, 1, metric.WithAttributes(attribute.Int("order", order)))
	m.pagesAllocated.Add(ctx, -int64(pages))
}

func (m *metrics) ranged(ctx context.Context, op string, pages uint64) {
	m.rangeOps.Add(ctx, int64(pages), metric.WithAttributes(attribute.String("op", op)))
}

func (m *metrics) close() error {
	if m.registration == nil {
		return nil
	}
	err := m.registration.Unregister()
	m.registration = nil
	return err
}
