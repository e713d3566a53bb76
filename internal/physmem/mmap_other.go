//go:build !unix

package physmem

// mapAnon falls back to the Go heap when anonymous mappings are unavailable.
func mapAnon(size int) ([]byte, func() error, error) {
	return make([]byte, size), func() error { return nil }, nil
}

func discard(b []byte) error {
	clear(b)
	return nil
}
