package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/primitives/prf"
	"github.com/jezachen/go-sse/internal/primitives/ske"
)

// ANSS16Config holds the parameters of the two-dictionary (size + payload)
// variant of CT14-Pi: a single PRF call produces
// (l_w, K_w, l'_w, K'_w) of lengths (L, K, Lp, Kp) respectively.
type ANSS16Config struct {
	Lambda         int
	K              int
	Kp             int // param_k_prime
	L              int // label length into the payload hash table
	Lp             int // param_l_prime: label length into the size hash table
	IdentifierSize int

	PRFName string
	SKEName string

	prf     *prf.HmacPRF
	ske     *ske.SKE
	skeSize *ske.SKE
}

func (c *ANSS16Config) SchemeName() string { return "ANSS16-S3" }
func (c *ANSS16Config) PRF() *prf.HmacPRF  { return c.prf }
func (c *ANSS16Config) SKE() *ske.SKE      { return c.ske }

// SKESize is the SKE instance keyed by K'_w (length k'), encrypting each
// keyword's true posting count in the size dictionary.
func (c *ANSS16Config) SKESize() *ske.SKE { return c.skeSize }

// OutputLen returns the combined single-PRF-call output length k+k'+l+l'.
func (c *ANSS16Config) OutputLen() int { return c.K + c.Kp + c.L + c.Lp }

// NewANSS16Config validates and builds an ANSS16Config from raw parameters.
func NewANSS16Config(lambda, k, kp, l, lp, identifierSize int, prfName, skeName string) (*ANSS16Config, error) {
	if lambda <= 0 || k <= 0 || kp <= 0 || l <= 0 || lp <= 0 || identifierSize <= 0 {
		return nil, fmt.Errorf("config: %w: ANSS16-S3 requires positive lambda, k, k_prime, l, l_prime, identifier_size", errs.ErrConfig)
	}
	f, err := NewPRF(prfName)
	if err != nil {
		return nil, err
	}
	sk, err := NewSKE(skeName, k)
	if err != nil {
		return nil, err
	}
	skSize, err := NewSKE(skeName, kp)
	if err != nil {
		return nil, err
	}
	return &ANSS16Config{
		Lambda: lambda, K: k, Kp: kp, L: l, Lp: lp, IdentifierSize: identifierSize,
		PRFName: prfName, SKEName: skeName, prf: f, ske: sk, skeSize: skSize,
	}, nil
}
