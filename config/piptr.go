package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
)

// PiPtrConfig is PiBasConfig plus the id-block size B and pointer-block
// size b used by the pointer-indirection construction.
type PiPtrConfig struct {
	PiBasConfig
	B int // identifiers per id-block
	Bp int // pointer indices per pointer-block
}

func (c *PiPtrConfig) SchemeName() string { return "PiPtr" }

// NewPiPtrConfig validates and builds a PiPtrConfig from raw parameters.
func NewPiPtrConfig(lambda, prfOutputLength, identifierSize, b, bp int, prfName, skeName string) (*PiPtrConfig, error) {
	if err := validateBaseParams(lambda, prfOutputLength, identifierSize); err != nil {
		return nil, err
	}
	if b <= 0 || bp <= 0 {
		return nil, fmt.Errorf("config: %w: PiPtr requires positive block sizes B and b", errs.ErrConfig)
	}
	f, sk, err := buildBasePrimitives(lambda, prfName, skeName)
	if err != nil {
		return nil, err
	}
	return &PiPtrConfig{
		PiBasConfig: PiBasConfig{
			Lambda: lambda, PRFOutputLength: prfOutputLength, IdentifierSize: identifierSize,
			PRFName: prfName, SKEName: skeName, prf: f, ske: sk,
		},
		B: b, Bp: bp,
	}, nil
}
