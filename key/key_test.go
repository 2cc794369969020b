package key

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateIndependence(t *testing.T) {
	keys, err := Generate(rand.Reader, 4, 16)
	require.NoError(t, err)
	require.Len(t, keys, 4)
	for i := range keys {
		require.Len(t, keys[i], 16)
		for j := i + 1; j < len(keys); j++ {
			require.False(t, bytes.Equal(keys[i], keys[j]))
		}
	}
}

func TestGenerateZeroLength(t *testing.T) {
	keys, err := Generate(rand.Reader, 2, 0)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.Empty(t, keys[0])
	require.Empty(t, keys[1])
}
