package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/primitives/prp"
	"github.com/jezachen/go-sse/internal/primitives/ske"
)

// SSE2Config holds the parameters of the CGKO06 direct PRP-addressed table
// construction. The documented configuration surface also carries an ske
// field; per the key tuple (K1,K2) with K2 unused, SSE2's setup/search
// never invoke it, mirroring SSE1's unused K4. It is parsed and validated
// so a caller's configuration file need not special-case SSE2, but
// EDBSetup/Search never call it.
type SSE2Config struct {
	K              int // param_k: key byte length
	L              int // param_l: max keyword byte length
	N              int // param_n: distinct file count, from a database scan
	MaxFileSize    int // param_max_file_size: budget used to derive Max
	IdentifierSize int // param_identifier_size

	PRPPiName string
	SKEName   string

	Max int // max keywords per file, derived from MaxFileSize
	S   int // S = Max * N

	prpKeyLen int // k
	msgBits   int // l*8 + ceil(log2(n+max))
	prpPi     prp.PRP
	ske       *ske.SKE
}

func (c *SSE2Config) SchemeName() string { return "SSE2" }
func (c *SSE2Config) SKE() *ske.SKE       { return c.ske }
func (c *SSE2Config) PRPPi() prp.PRP      { return c.prpPi }
func (c *SSE2Config) MsgBits() int        { return c.msgBits }
func (c *SSE2Config) KeyLen() int         { return c.prpKeyLen }

// deriveMax greedily accumulates 2^(8*len) distinct words of length len
// bytes, starting from len=1, while the cumulative byte budget is not
// exceeded max-keywords-per-file formula.
func deriveMax(budget int) int {
	total := 0
	count := 0
	for length := 1; ; length++ {
		wordCount := 1 << uint(8*length)
		bytesForLength := wordCount * length
		if bytesForLength <= 0 || total+bytesForLength > budget {
			// The budget ends inside this length class.
			remaining := budget - total
			if remaining > 0 {
				count += remaining / length
			}
			break
		}
		total += bytesForLength
		count += wordCount
		if length > 8 {
			break
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}

// NewSSE2Config validates and builds an SSE2Config from raw parameters.
func NewSSE2Config(k, l, n, maxFileSize, identifierSize int, prpPiName, skeName string) (*SSE2Config, error) {
	if k <= 0 || l <= 0 || n <= 0 || maxFileSize <= 0 || identifierSize <= 0 {
		return nil, fmt.Errorf("config: %w: SSE2 requires positive k, l, n, max_file_size, identifier_size", errs.ErrConfig)
	}

	max := deriveMax(maxFileSize)
	s := max * n
	msgBits := 8*l + ceilLog2(n+max)

	// SKE is part of SSE2's documented configuration surface
	// but K2/ske go unused by EDBSetup/Search; validate the
	// name against a fixed AES key length rather than k, which sizes the
	// PRP key and need not be an AES-valid length.
	sk, err := NewSKE(skeName, 16)
	if err != nil {
		return nil, err
	}
	pi, err := NewFPEPRP(prpPiName)
	if err != nil {
		return nil, err
	}

	return &SSE2Config{
		K: k, L: l, N: n, MaxFileSize: maxFileSize, IdentifierSize: identifierSize,
		PRPPiName: prpPiName, SKEName: skeName,
		Max: max, S: s, prpKeyLen: k, msgBits: msgBits, prpPi: pi, ske: sk,
	}, nil
}
