package prf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutputLength(t *testing.T) {
	p, err := NewHmacPRF("SHA1")
	require.NoError(t, err)
	out, err := p.Sum([]byte("key"), []byte("msg"), 37)
	require.NoError(t, err)
	require.Len(t, out, 37)
}

func TestDeterministic(t *testing.T) {
	p, err := NewHmacPRF("SHA256")
	require.NoError(t, err)
	a, err := p.Sum([]byte("key"), []byte("msg"), 32)
	require.NoError(t, err)
	b, err := p.Sum([]byte("key"), []byte("msg"), 32)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := p.Sum([]byte("key"), []byte("other"), 32)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestPrefixConsistency(t *testing.T) {
	// Truncating to a shorter length must yield a prefix of the longer output.
	p, err := NewHmacPRF("SHA1")
	require.NoError(t, err)
	long, err := p.Sum([]byte("k"), []byte("m"), 100)
	require.NoError(t, err)
	short, err := p.Sum([]byte("k"), []byte("m"), 17)
	require.NoError(t, err)
	require.Equal(t, long[:17], short)
}
