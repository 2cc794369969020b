package config

import (
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/primitives/prf"
	"github.com/jezachen/go-sse/internal/primitives/ske"
)

// PiBasConfig holds the parameters shared by PiBas, PiPack, PiPtr and
// Pi2Lev.
type PiBasConfig struct {
	Lambda             int // param_lambda, in bytes
	PRFOutputLength    int // prf_f_output_length, in bytes
	IdentifierSize     int // param_identifier_size

	PRFName string
	SKEName string

	prf *prf.HmacPRF
	ske *ske.SKE
}

func (c *PiBasConfig) SchemeName() string { return "PiBas" }
func (c *PiBasConfig) PRF() *prf.HmacPRF   { return c.prf }
func (c *PiBasConfig) SKE() *ske.SKE        { return c.ske }

func validateBaseParams(lambda, prfOutputLength, identifierSize int) error {
	if lambda <= 0 || prfOutputLength <= 0 || identifierSize <= 0 {
		return fmt.Errorf("config: %w: requires positive lambda, prf_f_output_length, identifier_size", errs.ErrConfig)
	}
	return nil
}

func buildBasePrimitives(lambda int, prfName, skeName string) (*prf.HmacPRF, *ske.SKE, error) {
	f, err := NewPRF(prfName)
	if err != nil {
		return nil, nil, err
	}
	sk, err := NewSKE(skeName, lambda)
	if err != nil {
		return nil, nil, err
	}
	return f, sk, nil
}

// NewPiBasConfig validates and builds a PiBasConfig from raw parameters.
func NewPiBasConfig(lambda, prfOutputLength, identifierSize int, prfName, skeName string) (*PiBasConfig, error) {
	if err := validateBaseParams(lambda, prfOutputLength, identifierSize); err != nil {
		return nil, err
	}
	f, sk, err := buildBasePrimitives(lambda, prfName, skeName)
	if err != nil {
		return nil, err
	}
	return &PiBasConfig{
		Lambda: lambda, PRFOutputLength: prfOutputLength, IdentifierSize: identifierSize,
		PRFName: prfName, SKEName: skeName, prf: f, ske: sk,
	}, nil
}
