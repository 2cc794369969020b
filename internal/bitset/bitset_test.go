package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesRoundTrip(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	b := FromBytes(data, 0)
	require.Equal(t, data, b.Bytes())
}

func TestConcatAssociative(t *testing.T) {
	a := New(0b101, 3)
	bb := New(0b01, 2)
	c := New(0b1, 1)

	left := Concat(Concat(a, bb), c)
	right := Concat(a, Concat(bb, c))
	require.True(t, Equal(left, right))
	require.Equal(t, 6, left.Len())
}

func TestShiftRoundTrip(t *testing.T) {
	b := New(0b1011_0110, 8)
	shifted, err := b.Shl(3)
	require.NoError(t, err)
	back, err := shifted.Shr(3)
	require.NoError(t, err)

	// top n bits must be zero after (a<<n)>>n
	top, err := back.GetHigherBits(3)
	require.NoError(t, err)
	require.Equal(t, uint64(0), top.Uint64())
}

func TestShiftByLengthIsZero(t *testing.T) {
	b := New(0xff, 8)
	shl, err := b.Shl(8)
	require.NoError(t, err)
	require.Equal(t, uint64(0), shl.Uint64())

	shr, err := b.Shr(100)
	require.NoError(t, err)
	require.Equal(t, uint64(0), shr.Uint64())
}

func TestNegativeShiftIsError(t *testing.T) {
	b := New(1, 8)
	_, err := b.Shl(-1)
	require.ErrorIs(t, err, ErrNegativeShift)
	_, err = b.Shr(-1)
	require.ErrorIs(t, err, ErrNegativeShift)
}

func TestHigherLowerBitsOutOfRange(t *testing.T) {
	b := New(1, 8)
	_, err := b.GetHigherBits(9)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = b.GetLowerBits(9)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestNotMasksToOwnLength(t *testing.T) {
	b := New(0b1010, 4)
	n := b.Not()
	require.Equal(t, 4, n.Len())
	require.Equal(t, uint64(0b0101), n.Uint64())
}

func TestHalfSplitOddLength(t *testing.T) {
	b := New(0b10110, 5)
	high, low := HalfSplit(b)
	require.Equal(t, 3, high.Len())
	require.Equal(t, 2, low.Len())
	require.True(t, Equal(Concat(high, low), b))
}

func TestIndexMSBFirst(t *testing.T) {
	b := New(0b100, 3)
	require.True(t, b.At(0))
	require.False(t, b.At(1))
	require.False(t, b.At(2))
}
