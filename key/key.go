// Package key provides the one helper every scheme's KeyGen builds on:
// sampling the independent uniformly random sub-keys a scheme's Key type
// is made of.
package key

import (
	"fmt"
	"io"

	"github.com/jezachen/go-sse/internal/layout/randsrc"
)

// Generate samples n independent uniformly random byte strings of the given
// length, one per scheme sub-key.
func Generate(src randsrc.Source, n, length int) ([][]byte, error) {
	out := make([][]byte, n)
	for i := range out {
		buf := make([]byte, length)
		if _, err := io.ReadFull(src, buf); err != nil {
			return nil, fmt.Errorf("key: generation failed: %w", err)
		}
		out[i] = buf
	}
	return out, nil
}
