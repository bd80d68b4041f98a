//go:build !cgo

package engine

// loadABI always fails without cgo; the native library cannot be loaded.
func loadABI(_ string) (abi, error) {
	return nil, ErrCgoRequired
}
