package dp17

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
)

func testConfig(t *testing.T) *config.DP17Config {
	t.Helper()
	cfg, err := config.NewDP17Config(16, 0.5, 2, 8, "", "", "")
	require.NoError(t, err)
	return cfg
}

func id(s string) []byte {
	out := make([]byte, 8)
	copy(out, s)
	return out
}

func idSet(t *testing.T, ids [][]byte) map[string]bool {
	t.Helper()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[string(id)] = true
	}
	return out
}

func TestEDBSetupAndSearch(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	db := sse.Database{
		"alpha": {id("11111111"), id("22222222"), id("33333333")},
		"beta":  {id("44444444")},
		"gamma": {id("55555555"), id("66666666")},
	}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)

	for w, want := range db {
		tok, err := TokenGen(cfg, key, w)
		require.NoError(t, err)
		res, err := Search(cfg, edb, tok)
		require.NoError(t, err)
		require.Equal(t, idSet(t, want), idSet(t, res.IDs))
		require.Len(t, res.IDs, len(want))
	}
}

// TestThousandIdentifiersOneKeyword exercises the L=1 configuration: the
// whole posting list must land in a single chunk at a level big enough to
// hold it, and one lookup must recover the full identifier set.
func TestThousandIdentifiersOneKeyword(t *testing.T) {
	cfg, err := config.NewDP17Config(16, 0.5, 1, 8, "", "", "")
	require.NoError(t, err)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	seen := make(map[string]bool, 1000)
	var ids [][]byte
	for len(ids) < 1000 {
		buf := make([]byte, 8)
		_, err := rand.Read(buf)
		require.NoError(t, err)
		allZero := true
		for _, b := range buf {
			if b != 0 {
				allZero = false
				break
			}
		}
		if allZero || seen[string(buf)] {
			continue
		}
		seen[string(buf)] = true
		ids = append(ids, buf)
	}

	edb, err := EDBSetup(cfg, key, sse.Database{"bulk": ids}, rand.Reader)
	require.NoError(t, err)
	tok, err := TokenGen(cfg, key, "bulk")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Equal(t, idSet(t, ids), idSet(t, res.IDs))
	require.Len(t, res.IDs, 1000)
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

func TestSerializationRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	db := sse.Database{
		"alpha": {id("11111111"), id("22222222")},
		"beta":  {id("33333333")},
	}
	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)

	key2, err := DeserializeKey(key.Serialize())
	require.NoError(t, err)
	require.Equal(t, key, key2)

	edb2, err := DeserializeEDB(edb.Serialize())
	require.NoError(t, err)
	require.Equal(t, edb, edb2)

	tok, err := TokenGen(cfg, key, "alpha")
	require.NoError(t, err)
	tok2, err := DeserializeToken(tok.Serialize())
	require.NoError(t, err)
	require.Equal(t, tok, tok2)

	res, err := Search(cfg, edb2, tok2)
	require.NoError(t, err)
	res2, err := DeserializeResult(res.Serialize())
	require.NoError(t, err)
	require.Equal(t, idSet(t, db["alpha"]), idSet(t, res2.IDs))
}

func TestRegisteredInGlobalRegistry(t *testing.T) {
	s, err := sse.Get("DP17-Pi")
	require.NoError(t, err)
	cfg, err := s.NewConfig(map[string]any{
		"lambda": 16, "ratio": 0.5, "locality": 2, "identifier_size": 8,
	})
	require.NoError(t, err)
	require.Equal(t, "DP17-Pi", cfg.SchemeName())
}
