// Package prf implements the PRF primitive: a keyed, variable-length-output
// pseudorandom function.
package prf

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
)

// PRF is a keyed pseudorandom function producing outputLen bytes.
type PRF interface {
	Sum(key, msg []byte, outputLen int) ([]byte, error)
}

func newHasher(name string) (func() hash.Hash, error) {
	switch name {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	default:
		return nil, fmt.Errorf("prf: unsupported underlying hash %q", name)
	}
}

// HmacPRF implements the TLS-1.2 P_hash data-expansion function (RFC 5246
// §5): A(0)=msg, A(i)=HMAC(key,A(i-1)), output is
// HMAC(key,A(1)‖msg) ‖ HMAC(key,A(2)‖msg) ‖ … truncated to outputLen.
type HmacPRF struct {
	newHash func() hash.Hash
}

// NewHmacPRF builds an HmacPRF using the named underlying hash (default
// SHA1, for compatibility with the published schemes this library implements).
func NewHmacPRF(underlyingHash string) (*HmacPRF, error) {
	h, err := newHasher(underlyingHash)
	if err != nil {
		return nil, err
	}
	return &HmacPRF{newHash: h}, nil
}

// Sum computes P_hash(key, msg) truncated to outputLen bytes.
func (p *HmacPRF) Sum(key, msg []byte, outputLen int) ([]byte, error) {
	if outputLen < 0 {
		return nil, fmt.Errorf("prf: negative output length")
	}

	mac := func(k, data []byte) []byte {
		m := hmac.New(p.newHash, k)
		m.Write(data)
		return m.Sum(nil)
	}

	a := mac(key, msg)
	out := make([]byte, 0, outputLen)
	for len(out) < outputLen {
		chunk := mac(key, append(append([]byte{}, a...), msg...))
		out = append(out, chunk...)
		a = mac(key, a)
	}
	return out[:outputLen], nil
}
