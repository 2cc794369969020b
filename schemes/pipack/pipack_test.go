package pipack

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
)

func testConfig(t *testing.T, b int) *config.PiPackConfig {
	t.Helper()
	cfg, err := config.NewPiPackConfig(16, 16, 8, b, "", "")
	require.NoError(t, err)
	return cfg
}

func id(s string) []byte {
	out := make([]byte, 8)
	copy(out, s)
	return out
}

func TestEDBSetupAndSearchAcrossBlockBoundary(t *testing.T) {
	cfg := testConfig(t, 2)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	db := sse.Database{
		"alice": {id("doc0001"), id("doc0002"), id("doc0003")},
	}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	require.Len(t, edb.D, 2) // ceil(3/2) cells

	tok, err := TokenGen(cfg, key, "alice")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Equal(t, [][]byte{id("doc0001"), id("doc0002"), id("doc0003")}, res.IDs)
}

func TestEDBSetupRejectsAllZeroIdentifier(t *testing.T) {
	cfg := testConfig(t, 2)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	db := sse.Database{"alice": {make([]byte, 8)}}
	_, err = EDBSetup(cfg, key, db, rand.Reader)
	require.Error(t, err)
}

func TestSearchAbsentKeywordIsEmpty(t *testing.T) {
	cfg := testConfig(t, 2)
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

func TestRegisteredInGlobalRegistry(t *testing.T) {
	s, err := sse.Get("PiPack")
	require.NoError(t, err)
	cfg, err := s.NewConfig(map[string]any{
		"lambda": 16, "prf_output_length": 16, "identifier_size": 8, "b": 4,
	})
	require.NoError(t, err)
	require.Equal(t, "PiPack", cfg.SchemeName())
}
