package sse1

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
)

func testConfig(t *testing.T) *config.SSE1Config {
	t.Helper()
	cfg, err := config.NewSSE1Config(16, 16, 8, 32, 8, "", "", "", "", "")
	require.NoError(t, err)
	return cfg
}

// TestTwoKeywords covers two keywords each with a multi-identifier posting list.
func TestTwoKeywords(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	db := sse.Database{
		"China":   {[]byte("12345678"), []byte("23221233"), []byte("23421232")},
		"Ukraine": {[]byte{0, 0, 'a', 'z', 2, 3, 's', 'c'}, []byte{0, 0, 0, 0, 1, 0, 2, 1}},
	}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)

	tok, err := TokenGen(cfg, key, "China")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Equal(t, db["China"], res.IDs)

	tokU, err := TokenGen(cfg, key, "Ukraine")
	require.NoError(t, err)
	resU, err := Search(cfg, edb, tokU)
	require.NoError(t, err)
	require.Equal(t, db["Ukraine"], resU.IDs)
}

func TestSingleIDKeyword(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	db := sse.Database{"solo": {[]byte("docxxxxx")}}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	tok, err := TokenGen(cfg, key, "solo")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Equal(t, db["solo"], res.IDs)
}

func TestSearchAbsentKeywordIsEmptyNotError(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	edb, err := EDBSetup(cfg, key, sse.Database{"China": {[]byte("12345678")}}, rand.Reader)
	require.NoError(t, err)

	tok, err := TokenGen(cfg, key, "Russia")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
}

func TestEDBSetupNondeterministic(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	db := sse.Database{"China": {[]byte("12345678")}}

	edb1, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	edb2, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	require.NotEqual(t, edb1.Serialize(), edb2.Serialize())

	tok, err := TokenGen(cfg, key, "China")
	require.NoError(t, err)
	res1, err := Search(cfg, edb1, tok)
	require.NoError(t, err)
	res2, err := Search(cfg, edb2, tok)
	require.NoError(t, err)
	require.Equal(t, res1, res2)
}

func TestSerializationRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	db := sse.Database{"China": {[]byte("12345678")}}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	tok, err := TokenGen(cfg, key, "China")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)

	key2, err := DeserializeKey(key.Serialize())
	require.NoError(t, err)
	require.True(t, bytes.Equal(key.K1, key2.K1))
	require.True(t, bytes.Equal(key.K2, key2.K2))
	require.True(t, bytes.Equal(key.K3, key2.K3))
	require.True(t, bytes.Equal(key.K4, key2.K4))

	edb2, err := DeserializeEDB(edb.Serialize())
	require.NoError(t, err)
	require.Equal(t, edb.A, edb2.A)
	require.Equal(t, edb.T, edb2.T)

	tok2, err := DeserializeToken(tok.Serialize())
	require.NoError(t, err)
	require.True(t, bytes.Equal(tok.Gamma, tok2.Gamma))
	require.True(t, bytes.Equal(tok.Eta, tok2.Eta))

	res2, err := DeserializeResult(res.Serialize())
	require.NoError(t, err)
	require.Equal(t, res.IDs, res2.IDs)
}

func TestRegisteredInGlobalRegistry(t *testing.T) {
	s, err := sse.Get("SSE1")
	require.NoError(t, err)
	require.Equal(t, "SSE1", s.Name())
	cfg, err := s.NewConfig(map[string]any{
		"k": 16, "l": 16, "s": 8, "dictionary_size": 32, "identifier_size": 8,
	})
	require.NoError(t, err)
	require.Equal(t, "SSE1", cfg.SchemeName())
}
