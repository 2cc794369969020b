package pibas

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
)

func testConfig(t *testing.T) *config.PiBasConfig {
	t.Helper()
	cfg, err := config.NewPiBasConfig(16, 16, 8, "", "")
	require.NoError(t, err)
	return cfg
}

func TestEDBSetupAndSearch(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	db := sse.Database{
		"China": {[]byte("12345678"), []byte("23221233"), []byte("23421232")},
		"bob":   {[]byte("doc00003")},
	}

	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)

	tok, err := TokenGen(cfg, key, "China")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Equal(t, db["China"], res.IDs)

	tokBob, err := TokenGen(cfg, key, "bob")
	require.NoError(t, err)
	resBob, err := Search(cfg, edb, tokBob)
	require.NoError(t, err)
	require.Len(t, resBob.IDs, 1)
}

func TestSearchAbsentKeywordIsEmptyNotError(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	db := sse.Database{
		"China": {[]byte("12345678"), []byte("23221233"), []byte("23421232")},
	}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)

	tok, err := TokenGen(cfg, key, "Russia")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
}

func TestSerializationRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	db := sse.Database{"alice": {[]byte("doc0001")}}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	tok, err := TokenGen(cfg, key, "alice")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)

	key2, err := DeserializeKey(key.Serialize())
	require.NoError(t, err)
	require.True(t, bytes.Equal(key.K, key2.K))

	edb2, err := DeserializeEDB(edb.Serialize())
	require.NoError(t, err)
	require.Equal(t, edb.D, edb2.D)

	tok2, err := DeserializeToken(tok.Serialize())
	require.NoError(t, err)
	require.True(t, bytes.Equal(tok.K1, tok2.K1))
	require.True(t, bytes.Equal(tok.K2, tok2.K2))

	res2, err := DeserializeResult(res.Serialize())
	require.NoError(t, err)
	require.Equal(t, res.IDs, res2.IDs)
}

func TestRegisteredInGlobalRegistry(t *testing.T) {
	s, err := sse.Get("PiBas")
	require.NoError(t, err)
	require.Equal(t, "PiBas", s.Name())
	cfg, err := s.NewConfig(map[string]any{
		"lambda": 16, "prf_output_length": 16, "identifier_size": 8,
	})
	require.NoError(t, err)
	require.Equal(t, "PiBas", cfg.SchemeName())
}
