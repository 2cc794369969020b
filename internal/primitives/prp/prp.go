// Package prp implements two length-preserving pseudorandom permutations:
// a fixed three-round Luby-Rackoff Feistel construction over even bit
// lengths, and a bitwise format-preserving (FFX-style) Feistel construction
// over arbitrary, including odd, bit lengths.
package prp

import (
	"encoding/binary"
	"fmt"

	"github.com/jezachen/go-sse/internal/bitset"
	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/primitives/prf"
)

// PRP is a length-preserving pseudorandom permutation over a keyed domain.
type PRP interface {
	Encrypt(key []byte, msg bitset.Bitset) (bitset.Bitset, error)
	Decrypt(key []byte, msg bitset.Bitset) (bitset.Bitset, error)
}

func feistelRound(p *prf.HmacPRF, key []byte, roundIndex int, input bitset.Bitset, outputBits int) (bitset.Bitset, error) {
	in := input.Bytes()
	msg := make([]byte, 4+len(in))
	binary.BigEndian.PutUint32(msg[:4], uint32(roundIndex))
	copy(msg[4:], in)

	outBytes := (outputBits + 7) / 8
	raw, err := p.Sum(key, msg, outBytes)
	if err != nil {
		return bitset.Bitset{}, err
	}
	full := bitset.FromBytes(raw, outBytes*8)
	return full.GetHigherBits(outputBits)
}

// LubyRackoff is the three-round Feistel construction
// sometimes selected under the name HmacLubyRackoffPRP since its round
// function is always an HMAC-PRF.
type LubyRackoff struct {
	round   *prf.HmacPRF
	keyLen  int // length of a single sub-key K0/K1/K2, in bytes
	msgBits int // total message bit length; must be even
}

const lubyRackoffRounds = 3

// NewLubyRackoff builds a three-round Feistel PRP over msgBits-bit inputs
// (msgBits must be even); subKeyLen is the byte length of each of the three
// sub-keys packed into the combined key.
func NewLubyRackoff(msgBits, subKeyLen int) (*LubyRackoff, error) {
	if msgBits%2 != 0 {
		return nil, fmt.Errorf("prp: %w: Luby-Rackoff requires an even bit length, got %d", errs.ErrConfig, msgBits)
	}
	round, err := prf.NewHmacPRF("SHA1")
	if err != nil {
		return nil, err
	}
	return &LubyRackoff{round: round, keyLen: subKeyLen, msgBits: msgBits}, nil
}

// KeyLen returns the expected length in bytes of the combined 3-subkey key.
func (l *LubyRackoff) KeyLen() int { return 3 * l.keyLen }

func (l *LubyRackoff) subKeys(key []byte) ([3][]byte, error) {
	var ks [3][]byte
	if len(key) != l.KeyLen() {
		return ks, fmt.Errorf("prp: %w: key length mismatch", errs.ErrLengthMismatch)
	}
	for i := 0; i < 3; i++ {
		ks[i] = key[i*l.keyLen : (i+1)*l.keyLen]
	}
	return ks, nil
}

// Encrypt applies the forward three-round Feistel permutation.
func (l *LubyRackoff) Encrypt(key []byte, msg bitset.Bitset) (bitset.Bitset, error) {
	if msg.Len() != l.msgBits {
		return bitset.Bitset{}, fmt.Errorf("prp: %w: message bit length mismatch", errs.ErrLengthMismatch)
	}
	ks, err := l.subKeys(key)
	if err != nil {
		return bitset.Bitset{}, err
	}

	half := l.msgBits / 2
	left, right := msg.Slice(0, half), msg.Slice(half, l.msgBits)
	for i := 0; i < lubyRackoffRounds; i++ {
		f, err := feistelRound(l.round, ks[i], i, right, half)
		if err != nil {
			return bitset.Bitset{}, err
		}
		left, right = right, bitset.Xor(left, f)
	}
	return bitset.Concat(left, right), nil
}

// Decrypt applies the inverse permutation.
func (l *LubyRackoff) Decrypt(key []byte, msg bitset.Bitset) (bitset.Bitset, error) {
	if msg.Len() != l.msgBits {
		return bitset.Bitset{}, fmt.Errorf("prp: %w: message bit length mismatch", errs.ErrLengthMismatch)
	}
	ks, err := l.subKeys(key)
	if err != nil {
		return bitset.Bitset{}, err
	}

	half := l.msgBits / 2
	left, right := msg.Slice(0, half), msg.Slice(half, l.msgBits)
	for i := lubyRackoffRounds - 1; i >= 0; i-- {
		f, err := feistelRound(l.round, ks[i], i, left, half)
		if err != nil {
			return bitset.Bitset{}, err
		}
		left, right = bitset.Xor(right, f), left
	}
	return bitset.Concat(left, right), nil
}

// DefaultFPERounds is the round count used by BitwiseFPE absent an override.
const DefaultFPERounds = 10

// BitwiseFPE is the format-preserving, Feistel-based construction (FFX
// style), operating on arbitrary, including odd, bit
// lengths. Odd-length inputs are split (ceil(n/2), floor(n/2)) without
// padding; decrypt uses the matching split.
type BitwiseFPE struct {
	round  *prf.HmacPRF
	rounds int
}

// NewBitwiseFPE builds a BitwiseFPE PRP with the given round count (use
// DefaultFPERounds absent a reason to deviate; must be >= 10).
func NewBitwiseFPE(rounds int) (*BitwiseFPE, error) {
	if rounds < DefaultFPERounds {
		return nil, fmt.Errorf("prp: %w: BitwiseFPE requires at least %d rounds, got %d", errs.ErrConfig, DefaultFPERounds, rounds)
	}
	round, err := prf.NewHmacPRF("SHA1")
	if err != nil {
		return nil, err
	}
	return &BitwiseFPE{round: round, rounds: rounds}, nil
}

// Encrypt applies the forward Feistel permutation over msg's own bit length.
func (f *BitwiseFPE) Encrypt(key []byte, msg bitset.Bitset) (bitset.Bitset, error) {
	a, b := bitset.HalfSplit(msg)
	for i := 0; i < f.rounds; i++ {
		r, err := feistelRound(f.round, key, i, b, a.Len())
		if err != nil {
			return bitset.Bitset{}, err
		}
		c := bitset.Xor(a, r)
		a, b = b, c
	}
	return bitset.Concat(a, b), nil
}

// Decrypt applies the inverse permutation.
func (f *BitwiseFPE) Decrypt(key []byte, ct bitset.Bitset) (bitset.Bitset, error) {
	a, b := bitset.HalfSplit(ct)
	for i := f.rounds - 1; i >= 0; i-- {
		newB := a
		c := b
		r, err := feistelRound(f.round, key, i, newB, c.Len())
		if err != nil {
			return bitset.Bitset{}, err
		}
		newA := bitset.Xor(c, r)
		a, b = newA, newB
	}
	return bitset.Concat(a, b), nil
}
