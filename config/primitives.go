// Package config holds the per-scheme, immutable configuration records
// and the registries that resolve the documented primitive names to
// concrete implementations.
package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/primitives/hash"
	"github.com/jezachen/go-sse/internal/primitives/prf"
	"github.com/jezachen/go-sse/internal/primitives/prp"
	"github.com/jezachen/go-sse/internal/primitives/ske"
)

// NewPRF resolves a PRF primitive name to an implementation. Only "HmacPRF"
// is part of the documented configuration surface.
func NewPRF(name string) (*prf.HmacPRF, error) {
	switch name {
	case "", "HmacPRF":
		return prf.NewHmacPRF("SHA1")
	default:
		return nil, fmt.Errorf("config: %w: unsupported PRF %q", errs.ErrConfig, name)
	}
}

// NewEvenLengthPRP resolves a PRP primitive name to an implementation
// operating on a fixed even bit length with subKeyLen-byte sub-keys.
// "LubyRackoffPRP" and "HmacLubyRackoffPRP" both resolve to the same
// three-round HMAC-keyed Feistel construction: a single
// construction whose round function is always HMAC, so the two registry
// names resolve to aliases of one Go type.
func NewEvenLengthPRP(name string, msgBits, subKeyLen int) (prp.PRP, error) {
	switch name {
	case "LubyRackoffPRP", "HmacLubyRackoffPRP":
		return prp.NewLubyRackoff(msgBits, subKeyLen)
	default:
		return nil, fmt.Errorf("config: %w: unsupported fixed-length PRP %q", errs.ErrConfig, name)
	}
}

// NewFPEPRP resolves a PRP primitive name to a format-preserving
// implementation operating on arbitrary, including odd, bit lengths.
func NewFPEPRP(name string) (prp.PRP, error) {
	switch name {
	case "", "BitwiseFPEPRP":
		return prp.NewBitwiseFPE(prp.DefaultFPERounds)
	default:
		return nil, fmt.Errorf("config: %w: unsupported FPE PRP %q", errs.ErrConfig, name)
	}
}

// NewSKE resolves an SKE primitive name to an implementation with the given
// key length in bytes.
func NewSKE(name string, keyLen int) (*ske.SKE, error) {
	switch name {
	case "", "AES-CBC":
		return ske.New(keyLen)
	default:
		return nil, fmt.Errorf("config: %w: unsupported SKE %q", errs.ErrConfig, name)
	}
}

// NewHash resolves a hash primitive name to an implementation with the
// given output length in bytes. The empty name selects SHA1, the same
// default the PRF registry uses.
func NewHash(name string, outputLen int) (hash.Hash, error) {
	if name == "" {
		name = "SHA1"
	}
	return hash.New(name, outputLen)
}
