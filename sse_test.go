package sse_test

import (
	"crypto/rand"
	mrand "math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse"

	_ "github.com/jezachen/go-sse/schemes/pibas"
	_ "github.com/jezachen/go-sse/schemes/sse2"
)

// TestGenericSchemeDispatch drives a scheme end-to-end through the
// name-indexed sse.Scheme interface alone, the same path cmd/ssectl and
// net/wsrpc use: no package here imports a scheme's concrete Key/EDB/
// Token/Result types.
func TestGenericSchemeDispatch(t *testing.T) {
	for _, name := range []string{"SSE2", "PiBas"} {
		name := name
		t.Run(name, func(t *testing.T) {
			scheme, err := sse.Get(name)
			require.NoError(t, err)

			var cfg sse.Config
			switch name {
			case "SSE2":
				cfg, err = scheme.NewConfig(map[string]any{
					"k": 16, "l": 8, "n": 3, "max_file_size": 3, "identifier_size": 8,
				})
			case "PiBas":
				cfg, err = scheme.NewConfig(map[string]any{
					"lambda": 16, "prf_output_length": 16, "identifier_size": 8,
				})
			}
			require.NoError(t, err)

			keyBytes, err := scheme.KeyGen(cfg, rand.Reader)
			require.NoError(t, err)
			require.NotEmpty(t, keyBytes)

			db := sse.Database{
				"alice": {[]byte("doc00001"), []byte("doc00002")},
			}
			edbBytes, err := scheme.EDBSetup(cfg, keyBytes, db, rand.Reader)
			require.NoError(t, err)

			tokenBytes, err := scheme.TokenGen(cfg, keyBytes, "alice")
			require.NoError(t, err)

			res, err := scheme.Search(cfg, edbBytes, tokenBytes)
			require.NoError(t, err)
			require.Equal(t, db["alice"], res.IDs)
		})
	}
}

func TestGenericSchemeDispatchUnknownScheme(t *testing.T) {
	_, err := sse.Get("NoSuchScheme")
	require.ErrorIs(t, err, sse.ErrConfig)
}

// TestSeededRandomnessSource swaps crypto/rand for a seeded deterministic
// stream; correctness must not depend on which randomness source backs
// KeyGen and EDBSetup.
func TestSeededRandomnessSource(t *testing.T) {
	scheme, err := sse.Get("PiBas")
	require.NoError(t, err)
	cfg, err := scheme.NewConfig(map[string]any{
		"lambda": 16, "prf_output_length": 16, "identifier_size": 8,
	})
	require.NoError(t, err)

	src := mrand.New(mrand.NewSource(42))
	keyBytes, err := scheme.KeyGen(cfg, src)
	require.NoError(t, err)

	db := sse.Database{
		"alice": {[]byte("doc00001"), []byte("doc00002")},
	}
	edbBytes, err := scheme.EDBSetup(cfg, keyBytes, db, src)
	require.NoError(t, err)
	tokenBytes, err := scheme.TokenGen(cfg, keyBytes, "alice")
	require.NoError(t, err)
	res, err := scheme.Search(cfg, edbBytes, tokenBytes)
	require.NoError(t, err)
	require.Equal(t, db["alice"], res.IDs)
}

func TestTokenGenDeterministic(t *testing.T) {
	scheme, err := sse.Get("PiBas")
	require.NoError(t, err)
	cfg, err := scheme.NewConfig(map[string]any{
		"lambda": 16, "prf_output_length": 16, "identifier_size": 8,
	})
	require.NoError(t, err)
	keyBytes, err := scheme.KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	tok1, err := scheme.TokenGen(cfg, keyBytes, "alice")
	require.NoError(t, err)
	tok2, err := scheme.TokenGen(cfg, keyBytes, "alice")
	require.NoError(t, err)
	require.Equal(t, tok1, tok2)
}
