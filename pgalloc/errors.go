package pgalloc

import "errors"

var (
	// ErrUnknownAlgorithm indicates a name with no registered Factory.
	ErrUnknownAlgorithm = errors.New("pgalloc: unknown algorithm")

	// ErrDuplicateAlgorithm indicates a second Register under the same name.
	ErrDuplicateAlgorithm = errors.New("pgalloc: algorithm already registered")

	// ErrNoPages indicates an empty descriptor table.
	ErrNoPages = errors.New("pgalloc: no pages")

	// ErrForeignDescriptor indicates a PFN or descriptor that does not belong
	// to the manager's table.
	ErrForeignDescriptor = errors.New("pgalloc: descriptor not in table")

	// ErrNotAllocated indicates FreePages on a page that does not head an
	// allocated block.
	ErrNotAllocated = errors.New("pgalloc: page not allocated")

	// ErrOrderMismatch indicates FreePages with an order different from the
	// one the block was allocated at.
	ErrOrderMismatch = errors.New("pgalloc: order does not match allocation")

	// ErrPageInUse indicates InsertPageRange over pages that are already
	// available or allocated.
	ErrPageInUse = errors.New("pgalloc: page already in use")

	// ErrNoBackingMemory indicates Bytes on a manager created without
	// WithBackingMemory.
	ErrNoBackingMemory = errors.New("pgalloc: no backing memory")

	// ErrClosed indicates use of a manager after Close.
	ErrClosed = errors.New("pgalloc: manager closed")
)
