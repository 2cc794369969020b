package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/primitives/prf"
	"github.com/jezachen/go-sse/internal/primitives/prp"
	"github.com/jezachen/go-sse/internal/primitives/ske"
)

// SSE1Config holds the parameters of the CGKO06 linked-list-in-array
// construction.
type SSE1Config struct {
	K               int // param_k: key byte length
	L               int // param_l: max keyword byte length
	S               int // param_s: array size, must be a power of two
	DictionarySize  int // param_dictionary_size: |Delta|
	IdentifierSize  int // param_identifier_size: |id|

	PRFName  string // prf_f
	PRPPiName  string // prp_pi
	PRPPsiName string // prp_psi
	SKE1Name string // ske1: encrypts list nodes
	SKE2Name string // ske2: reserved, unused by SSE1 (K4 is unused)

	prf     *prf.HmacPRF
	prpPi   prp.PRP // bitwise FPE over param_l*8 bits
	prpPsi  prp.PRP // bitwise FPE over ceil(log2 s) bits
	ske1    *ske.SKE
	addrBits int // ceil(log2 s)
}

func (c *SSE1Config) SchemeName() string { return "SSE1" }

// AddrBits returns ceil(log2(S)), the bit width of an array address.
func (c *SSE1Config) AddrBits() int { return c.addrBits }

func (c *SSE1Config) PRF() *prf.HmacPRF   { return c.prf }
func (c *SSE1Config) PRPPi() prp.PRP      { return c.prpPi }
func (c *SSE1Config) PRPPsi() prp.PRP     { return c.prpPsi }
func (c *SSE1Config) SKE1() *ske.SKE      { return c.ske1 }

func ceilLog2(n int) int {
	bits := 0
	for (1 << bits) < n {
		bits++
	}
	return bits
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

// NewSSE1Config validates and builds an SSE1Config from raw parameters.
func NewSSE1Config(k, l, s, dictionarySize, identifierSize int, prfName, prpPiName, prpPsiName, ske1Name, ske2Name string) (*SSE1Config, error) {
	if k <= 0 || l <= 0 || s <= 0 || dictionarySize <= 0 || identifierSize <= 0 {
		return nil, fmt.Errorf("config: %w: SSE1 requires positive k, l, s, dictionary_size, identifier_size", errs.ErrConfig)
	}
	if !isPowerOfTwo(s) {
		return nil, fmt.Errorf("config: %w: SSE1 param_s must be a power of two, got %d", errs.ErrConfig, s)
	}

	f, err := NewPRF(prfName)
	if err != nil {
		return nil, err
	}
	pi, err := NewFPEPRP(prpPiName)
	if err != nil {
		return nil, err
	}
	psi, err := NewFPEPRP(prpPsiName)
	if err != nil {
		return nil, err
	}
	ske1, err := NewSKE(ske1Name, k)
	if err != nil {
		return nil, err
	}

	return &SSE1Config{
		K: k, L: l, S: s, DictionarySize: dictionarySize, IdentifierSize: identifierSize,
		PRFName: prfName, PRPPiName: prpPiName, PRPPsiName: prpPsiName, SKE1Name: ske1Name, SKE2Name: ske2Name,
		prf: f, prpPi: pi, prpPsi: psi, ske1: ske1, addrBits: ceilLog2(s),
	}, nil
}
