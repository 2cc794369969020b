package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
)

// Pi2LevConfig holds the parameters of the three-case locality
// construction: B, b, B', b' and |id| must satisfy
// (B*|id|)/B' = (b*|id|)/b' (an integer), the shared index-size-in-A.
type Pi2LevConfig struct {
	PiBasConfig
	B  int
	Bp int // b
	B2 int // B'
	B2p int // b'

	IndexSize int // the common (B*|id|)/B' = (b*|id|)/b'
}

func (c *Pi2LevConfig) SchemeName() string { return "Pi2Lev" }

// NewPi2LevConfig validates the block-ratio invariant and builds a
// Pi2LevConfig from raw parameters.
func NewPi2LevConfig(lambda, prfOutputLength, identifierSize, b, bp, b2, b2p int, prfName, skeName string) (*Pi2LevConfig, error) {
	if err := validateBaseParams(lambda, prfOutputLength, identifierSize); err != nil {
		return nil, err
	}
	if b <= 0 || bp <= 0 || b2 <= 0 || b2p <= 0 {
		return nil, fmt.Errorf("config: %w: Pi2Lev requires positive block sizes B, b, B', b'", errs.ErrConfig)
	}

	// b is B (id-block size), bp is b (dict pointer-block entry count),
	// b2 is B' (first-level pointer-block size), b2p is b' (dict
	// pointer-block byte-equivalent entry count); see field doc comments.
	numFromA := b * identifierSize
	numFromDict := bp * identifierSize
	if numFromA%b2 != 0 || numFromDict%b2p != 0 {
		return nil, fmt.Errorf("config: %w: Pi2Lev block ratios (B*|id|)/B' and (b*|id|)/b' must be integers", errs.ErrConfig)
	}
	indexFromA := numFromA / b2
	indexFromDict := numFromDict / b2p
	if indexFromA != indexFromDict {
		return nil, fmt.Errorf("config: %w: Pi2Lev requires (B*|id|)/B' == (b*|id|)/b', got %d and %d", errs.ErrConfig, indexFromA, indexFromDict)
	}

	f, sk, err := buildBasePrimitives(lambda, prfName, skeName)
	if err != nil {
		return nil, err
	}
	return &Pi2LevConfig{
		PiBasConfig: PiBasConfig{
			Lambda: lambda, PRFOutputLength: prfOutputLength, IdentifierSize: identifierSize,
			PRFName: prfName, SKEName: skeName, prf: f, ske: sk,
		},
		B: b, Bp: bp, B2: b2, B2p: b2p, IndexSize: indexFromA,
	}, nil
}
