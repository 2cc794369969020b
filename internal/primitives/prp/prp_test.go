package prp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse/internal/bitset"
)

func TestLubyRackoffRoundTrip(t *testing.T) {
	lr, err := NewLubyRackoff(32, 16)
	require.NoError(t, err)
	key := make([]byte, lr.KeyLen())
	for i := range key {
		key[i] = byte(i)
	}

	msg := bitset.New(0xdeadbeef, 32)
	ct, err := lr.Encrypt(key, msg)
	require.NoError(t, err)
	pt, err := lr.Decrypt(key, ct)
	require.NoError(t, err)
	require.True(t, bitset.Equal(msg, pt))
}

func TestLubyRackoffRejectsOddLength(t *testing.T) {
	_, err := NewLubyRackoff(9, 16)
	require.Error(t, err)
}

func TestBitwiseFPERoundTripEven(t *testing.T) {
	f, err := NewBitwiseFPE(DefaultFPERounds)
	require.NoError(t, err)
	key := []byte("some fpe key material")

	msg := bitset.New(0b1010101010, 10)
	ct, err := f.Encrypt(key, msg)
	require.NoError(t, err)
	pt, err := f.Decrypt(key, ct)
	require.NoError(t, err)
	require.True(t, bitset.Equal(msg, pt))
}

func TestBitwiseFPERoundTripOdd(t *testing.T) {
	f, err := NewBitwiseFPE(DefaultFPERounds)
	require.NoError(t, err)
	key := []byte("some fpe key material")

	for _, bits := range []int{5, 7, 11, 13} {
		msg := bitset.New(1, bits)
		ct, err := f.Encrypt(key, msg)
		require.NoError(t, err)
		require.Equal(t, bits, ct.Len())
		pt, err := f.Decrypt(key, ct)
		require.NoError(t, err)
		require.True(t, bitset.Equal(msg, pt))
	}
}

func TestBitwiseFPERejectsFewRounds(t *testing.T) {
	_, err := NewBitwiseFPE(3)
	require.Error(t, err)
}
