// Package hash implements the variable-length-output hash primitive used
// throughout the SSE schemes: counter-mode expansion for fixed-output
// hashes, and native XOF reads for extendable-output hashes.
package hash

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"
)

// Hash is a variable-length-output hash function: Sum(msg) always returns
// exactly OutputLen() bytes.
type Hash interface {
	Sum(msg []byte) []byte
	OutputLen() int
}

type ctrExpand struct {
	newHash   func() hash.Hash
	outputLen int
}

func (h *ctrExpand) OutputLen() int { return h.outputLen }

// Sum computes H(msg‖1) ‖ H(msg‖2) ‖ … truncated to OutputLen() bytes, the
// counter being a fixed-width 4-byte big-endian integer.
func (h *ctrExpand) Sum(msg []byte) []byte {
	out := make([]byte, 0, h.outputLen)
	var ctr uint32 = 1
	for len(out) < h.outputLen {
		hh := h.newHash()
		hh.Write(msg)
		var ctrBytes [4]byte
		binary.BigEndian.PutUint32(ctrBytes[:], ctr)
		hh.Write(ctrBytes[:])
		out = append(out, hh.Sum(nil)...)
		ctr++
	}
	return out[:h.outputLen]
}

type xofHash struct {
	newXOF    func() sha3.ShakeHash
	outputLen int
}

func (h *xofHash) OutputLen() int { return h.outputLen }

func (h *xofHash) Sum(msg []byte) []byte {
	x := h.newXOF()
	x.Write(msg)
	out := make([]byte, h.outputLen)
	if _, err := x.Read(out); err != nil {
		panic(fmt.Sprintf("hash: XOF read failed: %v", err))
	}
	return out
}

// New builds a Hash implementation for the given registered name and output
// length. Supported names: SHA1, SHA256, SHAKE-128, SHAKE-256.
func New(name string, outputLen int) (Hash, error) {
	switch name {
	case "SHA1":
		return &ctrExpand{newHash: sha1.New, outputLen: outputLen}, nil
	case "SHA256":
		return &ctrExpand{newHash: sha256.New, outputLen: outputLen}, nil
	case "SHAKE-128":
		return &xofHash{newXOF: sha3.NewShake128, outputLen: outputLen}, nil
	case "SHAKE-256":
		return &xofHash{newXOF: sha3.NewShake256, outputLen: outputLen}, nil
	default:
		return nil, fmt.Errorf("hash: unsupported hash type %q", name)
	}
}
