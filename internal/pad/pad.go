// Package pad provides cache-line padding used to keep independently written
// hot words from sharing a line.
package pad

// CacheLinePad occupies a pessimistic cache line for the target architecture.
// Embed it between fields that are written by different goroutines.
type CacheLinePad struct {
	_ [CacheLineSize]byte
}
