package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/jezachen/go-sse"
)

// fileConfig is the on-disk shape of an ssectl scheme configuration file,
// loaded with the BurntSushi/toml library: one struct, one Decode call.
type fileConfig struct {
	Scheme string                 `toml:"scheme"`
	Params map[string]interface{} `toml:"params"`
}

// loadSchemeConfig reads path and resolves it to a registered scheme and
// the sse.Config it builds.
func loadSchemeConfig(path string) (sse.Scheme, sse.Config, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, nil, fmt.Errorf("ssectl: reading %s: %w", path, err)
	}
	scheme, err := sse.Get(fc.Scheme)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := scheme.NewConfig(normalizeParams(fc.Params))
	if err != nil {
		return nil, nil, fmt.Errorf("ssectl: %s: %w", path, err)
	}
	return scheme, cfg, nil
}

// normalizeParams converts the int64/float64 shape TOML decoding produces
// for interface{} targets into the plain int a scheme's NewConfig expects,
// leaving float64 (e.g. DP17's ratio) and string fields untouched.
func normalizeParams(in map[string]interface{}) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if n, ok := v.(int64); ok {
			out[k] = int(n)
			continue
		}
		out[k] = v
	}
	return out
}
