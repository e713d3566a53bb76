package pgalloc

import (
	"fmt"
	"slices"
	"sync"

	"github.com/joshuapare/pagekit/buddy"
)

// Algorithm is a page allocation policy a Manager can drive.
//
// Implementations are not safe for concurrent use; the Manager serializes
// every call.
type Algorithm interface {
	Name() string
	MaxOrder() int
	Init(base buddy.PFN, count uint64) error
	Allocate(order int) (buddy.Block, error)
	Free(pfn buddy.PFN, order int)
	InsertRange(start buddy.PFN, count uint64)
	RemoveRange(start buddy.PFN, count uint64)
	FreePages() uint64
	FreeBlocks(order int) int
	DumpState() string
}

// Verifier is implemented by algorithms that can check their own invariants.
type Verifier interface {
	Verify() error
}

// Factory creates an Algorithm serving orders up to maxOrder.
type Factory func(maxOrder int) (Algorithm, error)

var registry = struct {
	sync.RWMutex
	factories map[string]Factory
}{factories: make(map[string]Factory)}

func init() {
	MustRegister(buddy.Name, newBuddy)
}

func newBuddy(maxOrder int) (Algorithm, error) {
	a, err := buddy.New(&buddy.Config{MaxOrder: maxOrder})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Register makes an algorithm available to New under name.
func Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("pgalloc: register %q: empty name or nil factory", name)
	}

	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.factories[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateAlgorithm, name)
	}
	registry.factories[name] = f
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(name string, f Factory) {
	if err := Register(name, f); err != nil {
		panic(err)
	}
}

// Lookup returns the Factory registered under name.
func Lookup(name string) (Factory, error) {
	registry.RLock()
	defer registry.RUnlock()
	f, ok := registry.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return f, nil
}

// Algorithms returns the registered names, sorted.
func Algorithms() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
