package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/primitives/hash"
	"github.com/jezachen/go-sse/internal/primitives/prf"
	"github.com/jezachen/go-sse/internal/primitives/ske"
)

// DP17Config holds the parameters of the tunable-locality construction:
// locality L bounds search-token lookups per query, ratio r in (0,1]
// sizes the level-storage schedule.
type DP17Config struct {
	Lambda         int
	Ratio          float64 // param_actual_storage_level_ratio, r in (0,1]
	L              int     // param_L: locality
	IdentifierSize int

	RndName string // rnd: randomized SKE
	PRFName string // prf_f
	HashName string // hash_h

	prf  *prf.HmacPRF
	hash hash.Hash
	rnd  *ske.SKE
}

func (c *DP17Config) SchemeName() string { return "DP17-Pi" }
func (c *DP17Config) PRF() *prf.HmacPRF { return c.prf }
func (c *DP17Config) Hash() hash.Hash   { return c.hash }
func (c *DP17Config) Rnd() *ske.SKE     { return c.rnd }

// NewDP17Config validates and builds a DP17Config from raw parameters. The
// hash output length is fixed at 2*lambda bytes so it can be split evenly
// into a level index and a bucket index.
func NewDP17Config(lambda int, ratio float64, locality, identifierSize int, rndName, prfName, hashName string) (*DP17Config, error) {
	if lambda <= 0 || identifierSize <= 0 {
		return nil, fmt.Errorf("config: %w: DP17-Pi requires positive lambda, identifier_size", errs.ErrConfig)
	}
	if ratio <= 0 || ratio > 1 {
		return nil, fmt.Errorf("config: %w: DP17-Pi requires 0 < r <= 1, got %f", errs.ErrConfig, ratio)
	}
	if locality < 1 {
		return nil, fmt.Errorf("config: %w: DP17-Pi requires L >= 1, got %d", errs.ErrConfig, locality)
	}

	f, err := NewPRF(prfName)
	if err != nil {
		return nil, err
	}
	h, err := NewHash(hashName, 2*lambda)
	if err != nil {
		return nil, err
	}
	r, err := NewSKE(rndName, lambda)
	if err != nil {
		return nil, err
	}

	return &DP17Config{
		Lambda: lambda, Ratio: ratio, L: locality, IdentifierSize: identifierSize,
		RndName: rndName, PRFName: prfName, HashName: hashName,
		prf: f, hash: h, rnd: r,
	}, nil
}
