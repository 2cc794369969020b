package piptr

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
)

func testConfig(t *testing.T, b, bp int) *config.PiPtrConfig {
	t.Helper()
	cfg, err := config.NewPiPtrConfig(16, 16, 8, b, bp, "", "")
	require.NoError(t, err)
	return cfg
}

func id(s string) []byte {
	out := make([]byte, 8)
	copy(out, s)
	return out
}

func TestEDBSetupAndSearchAcrossBothBlockLevels(t *testing.T) {
	cfg := testConfig(t, 2, 2)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	db := sse.Database{
		"alice": {id("doc0001"), id("doc0002"), id("doc0003"), id("doc0004"), id("doc0005")},
	}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)

	tok, err := TokenGen(cfg, key, "alice")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Equal(t, [][]byte{
		id("doc0001"), id("doc0002"), id("doc0003"), id("doc0004"), id("doc0005"),
	}, res.IDs)
}

func TestSearchAbsentKeywordIsEmpty(t *testing.T) {
	cfg := testConfig(t, 2, 2)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	edb, err := EDBSetup(cfg, key, sse.Database{"alice": {id("doc0001")}}, rand.Reader)
	require.NoError(t, err)
	tok, err := TokenGen(cfg, key, "carol")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
}

func TestSerializationRoundTrip(t *testing.T) {
	cfg := testConfig(t, 2, 2)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	edb, err := EDBSetup(cfg, key, sse.Database{"alice": {id("doc0001"), id("doc0002")}}, rand.Reader)
	require.NoError(t, err)

	edb2, err := DeserializeEDB(edb.Serialize())
	require.NoError(t, err)
	require.Equal(t, edb.D, edb2.D)
	require.Equal(t, edb.A, edb2.A)
	require.Equal(t, edb.IndexSize, edb2.IndexSize)
}

func TestRegisteredInGlobalRegistry(t *testing.T) {
	s, err := sse.Get("PiPtr")
	require.NoError(t, err)
	cfg, err := s.NewConfig(map[string]any{
		"lambda": 16, "prf_output_length": 16, "identifier_size": 8, "b": 4, "bp": 4,
	})
	require.NoError(t, err)
	require.Equal(t, "PiPtr", cfg.SchemeName())
}
