// Package pgalloc owns a range of physical pages and allocates from it
// through a registered algorithm (by default the buddy allocator).
//
// A Table holds one Descriptor per page; callers address pages through
// descriptors and the Manager translates to PFNs for the algorithm. Pages
// start out reserved and become available with InsertPageRange:
//
//	table, _ := pgalloc.NewTable(0, 1<<16)
//	m, err := pgalloc.New(table, pgalloc.WithMaxOrder(10), pgalloc.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	first, _ := table.Descriptor(0)
//	if err := m.InsertPageRange(first, table.Len()); err != nil {
//	    return err
//	}
//
//	d, err := m.AllocPages(2)
//	...
//	err = m.FreePages(d, 2)
//
// The Manager serializes access, keeps per-page flags in step with the
// algorithm's free lists, and reports allocator activity through an
// OpenTelemetry meter when one is supplied via WithMeter.
package pgalloc
