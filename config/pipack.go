package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
)

// PiPackConfig is PiBasConfig plus the block entry count B used to pack B
// identifiers per cell.
type PiPackConfig struct {
	PiBasConfig
	B int // identifiers packed per block
}

func (c *PiPackConfig) SchemeName() string { return "PiPack" }

// NewPiPackConfig validates and builds a PiPackConfig from raw parameters.
func NewPiPackConfig(lambda, prfOutputLength, identifierSize, b int, prfName, skeName string) (*PiPackConfig, error) {
	if err := validateBaseParams(lambda, prfOutputLength, identifierSize); err != nil {
		return nil, err
	}
	if b <= 0 {
		return nil, fmt.Errorf("config: %w: PiPack requires a positive block size B", errs.ErrConfig)
	}
	f, sk, err := buildBasePrimitives(lambda, prfName, skeName)
	if err != nil {
		return nil, err
	}
	return &PiPackConfig{
		PiBasConfig: PiBasConfig{
			Lambda: lambda, PRFOutputLength: prfOutputLength, IdentifierSize: identifierSize,
			PRFName: prfName, SKEName: skeName, prf: f, ske: sk,
		},
		B: b,
	}, nil
}
