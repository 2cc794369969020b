// Package bitset implements a fixed-length bit string with big-endian
// integer semantics: index 0 is the most significant bit, matching the
// convention used throughout the SSE schemes for addresses and tags.
package bitset

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrNegativeShift is returned by Shl/Shr when the shift amount is negative.
var ErrNegativeShift = errors.New("bitset: negative shift")

// ErrOutOfRange is returned when a bit-count argument exceeds the bitset length.
var ErrOutOfRange = errors.New("bitset: out of range")

// Bitset is an immutable-by-convention fixed-length bit string. Mutating
// operations (SetBit) act in place; everything else returns a new value.
type Bitset struct {
	v   big.Int
	len int
}

// New builds a Bitset of the given bit length from an unsigned integer value.
// It panics if value does not fit in length bits.
func New(value uint64, length int) Bitset {
	var b Bitset
	b.len = length
	b.v.SetUint64(value)
	if b.v.BitLen() > length {
		panic(fmt.Sprintf("bitset: value does not fit in %d bits", length))
	}
	return b
}

// FromBytes builds a Bitset from a big-endian byte string. If length is 0,
// the length defaults to 8*len(data); otherwise it overrides the natural
// bit length (useful to represent a value with bit-length not a multiple of 8).
func FromBytes(data []byte, length int) Bitset {
	var b Bitset
	b.v.SetBytes(data)
	if length == 0 {
		length = 8 * len(data)
	}
	b.len = length
	return b
}

// Len returns the bit length of the bitset.
func (b Bitset) Len() int { return b.len }

// Uint64 returns the bitset's value as an unsigned integer. It panics if the
// value does not fit in 64 bits.
func (b Bitset) Uint64() uint64 {
	if !b.v.IsUint64() {
		panic("bitset: value does not fit in uint64")
	}
	return b.v.Uint64()
}

// Bytes renders the bitset as ceil(len/8) big-endian bytes, zero-left-padded.
func (b Bitset) Bytes() []byte {
	outLen := (b.len + 7) / 8
	out := make([]byte, outLen)
	raw := b.v.Bytes()
	copy(out[outLen-len(raw):], raw)
	return out
}

func (b Bitset) mask() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(b.len))
	m.Sub(m, big.NewInt(1))
	return m
}

// And returns the bitwise AND of a and b; the result length is the max of
// the two operand lengths.
func And(a, b Bitset) Bitset {
	var r Bitset
	r.len = maxInt(a.len, b.len)
	r.v.And(&a.v, &b.v)
	return r
}

// Or returns the bitwise OR of a and b; the result length is the max of the
// two operand lengths.
func Or(a, b Bitset) Bitset {
	var r Bitset
	r.len = maxInt(a.len, b.len)
	r.v.Or(&a.v, &b.v)
	return r
}

// Xor returns the bitwise XOR of a and b; the result length is the max of
// the two operand lengths.
func Xor(a, b Bitset) Bitset {
	var r Bitset
	r.len = maxInt(a.len, b.len)
	r.v.Xor(&a.v, &b.v)
	return r
}

// Not returns the bitwise complement of b, masked to b's own length.
func (b Bitset) Not() Bitset {
	var r Bitset
	r.len = b.len
	r.v.Xor(&b.v, b.mask())
	return r
}

// Shl returns b logically shifted left by n bits; zeros are shifted in from
// the right, the result keeps b's length, and shifting by at least the
// length yields all zeros. n must be >= 0.
func (b Bitset) Shl(n int) (Bitset, error) {
	if n < 0 {
		return Bitset{}, ErrNegativeShift
	}
	var r Bitset
	r.len = b.len
	if n >= b.len {
		return r, nil
	}
	r.v.Lsh(&b.v, uint(n))
	r.v.And(&r.v, b.mask())
	return r, nil
}

// Shr returns b logically shifted right by n bits; the result keeps b's
// length and shifting by at least the length yields all zeros. n must be >= 0.
func (b Bitset) Shr(n int) (Bitset, error) {
	if n < 0 {
		return Bitset{}, ErrNegativeShift
	}
	var r Bitset
	r.len = b.len
	if n >= b.len {
		return r, nil
	}
	r.v.Rsh(&b.v, uint(n))
	return r, nil
}

// Concat returns a‖b with length equal to the sum of the operand lengths;
// a occupies the high-order bits.
func Concat(a, b Bitset) Bitset {
	var r Bitset
	r.len = a.len + b.len
	r.v.Lsh(&a.v, uint(b.len))
	r.v.Or(&r.v, &b.v)
	return r
}

// At returns the bit at the given index (0 = MSB).
func (b Bitset) At(index int) bool {
	if index < 0 || index >= b.len {
		panic("bitset: index out of range")
	}
	pos := b.len - index - 1
	return b.v.Bit(pos) == 1
}

// SetBit sets the bit at the given index (0 = MSB) to value, in place.
func (b *Bitset) SetBit(index int, value bool) {
	if index < 0 || index >= b.len {
		panic("bitset: index out of range")
	}
	pos := uint(b.len - index - 1)
	if value {
		b.v.SetBit(&b.v, int(pos), 1)
	} else {
		b.v.SetBit(&b.v, int(pos), 0)
	}
}

// Slice returns the bits in [start, end) (0 = MSB) as a new Bitset of
// length end-start.
func (b Bitset) Slice(start, end int) Bitset {
	if start < 0 || end > b.len || start > end {
		panic("bitset: slice out of range")
	}
	n := end - start
	shiftRight := b.len - end
	var r Bitset
	r.len = n
	r.v.Rsh(&b.v, uint(shiftRight))
	r.v.And(&r.v, r.mask())
	return r
}

// Bits returns the bitset's bits MSB-first as a bool slice.
func (b Bitset) Bits() []bool {
	out := make([]bool, b.len)
	for i := 0; i < b.len; i++ {
		out[i] = b.At(i)
	}
	return out
}

// GetHigherBits returns the top n bits, itself a Bitset of length n.
func (b Bitset) GetHigherBits(n int) (Bitset, error) {
	if n < 0 || n > b.len {
		return Bitset{}, ErrOutOfRange
	}
	return b.Slice(0, n), nil
}

// GetLowerBits returns the bottom n bits, itself a Bitset of length n.
func (b Bitset) GetLowerBits(n int) (Bitset, error) {
	if n < 0 || n > b.len {
		return Bitset{}, ErrOutOfRange
	}
	return b.Slice(b.len-n, b.len), nil
}

// Equal reports whether a and b have the same length and value.
func Equal(a, b Bitset) bool {
	return a.len == b.len && a.v.Cmp(&b.v) == 0
}

func (b Bitset) String() string {
	bits := b.Bits()
	out := make([]byte, len(bits))
	for i, v := range bits {
		if v {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// HalfSplit splits v into (high, low) halves without padding: the high half
// gets ceil(n/2) bits and the low half floor(n/2) bits, matching the FFX
// split used by the bitwise FPE-PRP for odd-length inputs.
func HalfSplit(v Bitset) (high, low Bitset) {
	n := v.len
	highLen := (n + 1) / 2
	lowLen := n / 2
	return v.Slice(0, highLen), v.Slice(highLen, highLen+lowLen)
}
