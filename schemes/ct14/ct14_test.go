package ct14

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
)

func testConfig(t *testing.T) *config.CT14Config {
	t.Helper()
	cfg, err := config.NewCT14Config(16, 16, 16, 8, "", "", "")
	require.NoError(t, err)
	return cfg
}

func id(s string) []byte {
	out := make([]byte, 8)
	copy(out, s)
	return out
}

func TestPaddedDatabaseScenario(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	db := sse.Database{
		"a": {id("11111111")},
		"b": {id("22222222"), id("33333333")},
		"c": {id("44444444")},
	}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	require.Len(t, edb.Levels, 3)
	require.Len(t, edb.Levels[0], 4)
	require.Len(t, edb.Levels[1], 2)
	require.Len(t, edb.Levels[2], 1)

	for w, want := range db {
		tok, err := TokenGen(cfg, key, w)
		require.NoError(t, err)
		res, err := Search(cfg, edb, tok)
		require.NoError(t, err)
		require.Equal(t, want, res.IDs)
	}
}

func TestSearchAbsentKeywordIsEmpty(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	edb, err := EDBSetup(cfg, key, sse.Database{"a": {id("11111111")}}, rand.Reader)
	require.NoError(t, err)
	tok, err := TokenGen(cfg, key, "z")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
}

func TestRegisteredInGlobalRegistry(t *testing.T) {
	s, err := sse.Get("CT14-Pi")
	require.NoError(t, err)
	cfg, err := s.NewConfig(map[string]any{
		"k": 16, "k_prime": 16, "l": 16, "identifier_size": 8,
	})
	require.NoError(t, err)
	require.Equal(t, "CT14-Pi", cfg.SchemeName())
}
