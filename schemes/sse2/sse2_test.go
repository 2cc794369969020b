package sse2

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
)

// testConfig builds a small SSE2 configuration: n=3 distinct files, with a
// max-file-size budget of 3 giving param_max=3 keywords per file.
func testConfig(t *testing.T) *config.SSE2Config {
	t.Helper()
	cfg, err := config.NewSSE2Config(16, 8, 3, 3, 8, "", "")
	require.NoError(t, err)
	return cfg
}

func TestEDBSetupAndSearch(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	db := sse.Database{
		"alice": {[]byte("doc00001"), []byte("doc00002")},
		"bob":   {[]byte("doc00003")},
	}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)

	tok, err := TokenGen(cfg, key, "alice")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Equal(t, db["alice"], res.IDs)

	tokBob, err := TokenGen(cfg, key, "bob")
	require.NoError(t, err)
	resBob, err := Search(cfg, edb, tokBob)
	require.NoError(t, err)
	require.Equal(t, db["bob"], resBob.IDs)
}

func TestSearchAbsentKeywordIsEmptyNotError(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	edb, err := EDBSetup(cfg, key, sse.Database{"alice": {[]byte("doc00001")}}, rand.Reader)
	require.NoError(t, err)

	tok, err := TokenGen(cfg, key, "carol")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
}

func TestEveryIdentifierPaddedToMax(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	db := sse.Database{"alice": {[]byte("doc00001")}}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	// cfg.Max * cfg.N entries total once every identifier is padded to Max
	// occurrences: here a single identifier across Max cells.
	require.Len(t, edb.I, cfg.Max)
}

func TestTokenGenDeterministic(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	tok1, err := TokenGen(cfg, key, "alice")
	require.NoError(t, err)
	tok2, err := TokenGen(cfg, key, "alice")
	require.NoError(t, err)
	require.Equal(t, tok1.Labels, tok2.Labels)
}

func TestSerializationRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	db := sse.Database{"alice": {[]byte("doc00001")}}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	tok, err := TokenGen(cfg, key, "alice")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)

	key2, err := DeserializeKey(key.Serialize())
	require.NoError(t, err)
	require.True(t, bytes.Equal(key.K1, key2.K1))
	require.True(t, bytes.Equal(key.K2, key2.K2))

	edb2, err := DeserializeEDB(edb.Serialize())
	require.NoError(t, err)
	require.Equal(t, edb.I, edb2.I)

	tok2, err := DeserializeToken(tok.Serialize())
	require.NoError(t, err)
	require.Equal(t, tok.Labels, tok2.Labels)

	res2, err := DeserializeResult(res.Serialize())
	require.NoError(t, err)
	require.Equal(t, res.IDs, res2.IDs)
}

func TestRegisteredInGlobalRegistry(t *testing.T) {
	s, err := sse.Get("SSE2")
	require.NoError(t, err)
	require.Equal(t, "SSE2", s.Name())
	cfg, err := s.NewConfig(map[string]any{
		"k": 16, "l": 8, "n": 3, "max_file_size": 64, "identifier_size": 8,
	})
	require.NoError(t, err)
	require.Equal(t, "SSE2", cfg.SchemeName())
}
