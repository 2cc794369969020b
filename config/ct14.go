package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/primitives/prf"
	"github.com/jezachen/go-sse/internal/primitives/ske"
)

// CT14Config holds the parameters of the size-class hash-table
// construction: k sizes the per-keyword sub-keys (K_w,0, K_w,1) and the
// SKE key, k' sizes prf_f_prime's label output, l bounds the keyword length.
type CT14Config struct {
	K              int // sub-key / SKE key length, in bytes
	Kp             int // param_k_prime: label length, in bytes
	L              int // param_l: max keyword byte length
	IdentifierSize int

	PRFName      string // prf_f: derives (K_w,0, K_w,1) from (K, w)
	PRFPrimeName string // prf_f_prime: derives the per-level label
	SKEName      string

	prf      *prf.HmacPRF
	prfPrime *prf.HmacPRF
	ske      *ske.SKE
}

func (c *CT14Config) SchemeName() string { return "CT14-Pi" }
func (c *CT14Config) PRF() *prf.HmacPRF      { return c.prf }
func (c *CT14Config) PRFPrime() *prf.HmacPRF { return c.prfPrime }
func (c *CT14Config) SKE() *ske.SKE          { return c.ske }

// NewCT14Config validates and builds a CT14Config from raw parameters.
func NewCT14Config(k, kp, l, identifierSize int, prfName, prfPrimeName, skeName string) (*CT14Config, error) {
	if k <= 0 || kp <= 0 || l <= 0 || identifierSize <= 0 {
		return nil, fmt.Errorf("config: %w: CT14-Pi requires positive k, k_prime, l, identifier_size", errs.ErrConfig)
	}
	f, err := NewPRF(prfName)
	if err != nil {
		return nil, err
	}
	fp, err := NewPRF(prfPrimeName)
	if err != nil {
		return nil, err
	}
	sk, err := NewSKE(skeName, k)
	if err != nil {
		return nil, err
	}
	return &CT14Config{
		K: k, Kp: kp, L: l, IdentifierSize: identifierSize,
		PRFName: prfName, PRFPrimeName: prfPrimeName, SKEName: skeName,
		prf: f, prfPrime: fp, ske: sk,
	}, nil
}
