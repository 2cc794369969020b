package pi2lev

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
)

// A config where B=2, b=4, B'=2, b'=4 and |id|=8 satisfies
// (B*|id|)/B' = (2*8)/2 = 8 = (b*|id|)/b' = (4*8)/4.
func testConfig(t *testing.T) *config.Pi2LevConfig {
	t.Helper()
	cfg, err := config.NewPi2LevConfig(16, 16, 8, 2, 4, 2, 4, "", "")
	require.NoError(t, err)
	return cfg
}

func id(s string) []byte {
	out := make([]byte, 8)
	copy(out, s)
	return out
}

func roundTrip(t *testing.T, cfg *config.Pi2LevConfig, n int) {
	t.Helper()
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	var ids [][]byte
	for i := 0; i < n; i++ {
		ids = append(ids, id(string(rune('a'+i))+"0000000"))
	}
	db := sse.Database{"w": ids}

	edb, err := EDBSetup(cfg, key, db, rand.Reader)
	require.NoError(t, err)
	tok, err := TokenGen(cfg, key, "w")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.ElementsMatch(t, ids, res.IDs)
	require.Len(t, res.IDs, n)
}

func TestSmallCase(t *testing.T) {
	roundTrip(t, testConfig(t), 2) // n <= b(=4)
}

// TestSmallCaseBoundary pins the small case at its upper boundary: with
// B = b = B' = b' = 2 and 4-byte identifiers, a 2-identifier posting list
// fits in a single dictionary entry and comes back in order.
func TestSmallCaseBoundary(t *testing.T) {
	cfg, err := config.NewPi2LevConfig(16, 16, 4, 2, 2, 2, 2, "", "")
	require.NoError(t, err)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)

	ids := [][]byte{{0x01, 0x00, 0x00, 0x00}, {0x02, 0x00, 0x00, 0x00}}
	edb, err := EDBSetup(cfg, key, sse.Database{"w": ids}, rand.Reader)
	require.NoError(t, err)
	require.Len(t, edb.D, 1)
	require.Empty(t, edb.A)

	tok, err := TokenGen(cfg, key, "w")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Equal(t, ids, res.IDs)
}

func TestMediumCase(t *testing.T) {
	roundTrip(t, testConfig(t), 6) // b < n <= B*b'(=2*4=8)
}

func TestLargeCase(t *testing.T) {
	roundTrip(t, testConfig(t), 12) // B*b' < n < B*B'*b'(=2*2*4=16)
}

func TestSizeAboveLargeBoundIsError(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	var ids [][]byte
	for i := 0; i < 20; i++ {
		ids = append(ids, id("doc"))
	}
	_, err = EDBSetup(cfg, key, sse.Database{"w": ids}, rand.Reader)
	require.Error(t, err)
}

func TestSearchAbsentKeywordIsEmpty(t *testing.T) {
	cfg := testConfig(t)
	key, err := KeyGen(cfg, rand.Reader)
	require.NoError(t, err)
	edb, err := EDBSetup(cfg, key, sse.Database{"w": {id("doc0001")}}, rand.Reader)
	require.NoError(t, err)
	tok, err := TokenGen(cfg, key, "absent")
	require.NoError(t, err)
	res, err := Search(cfg, edb, tok)
	require.NoError(t, err)
	require.Empty(t, res.IDs)
}

func TestRegisteredInGlobalRegistry(t *testing.T) {
	s, err := sse.Get("Pi2Lev")
	require.NoError(t, err)
	cfg, err := s.NewConfig(map[string]any{
		"lambda": 16, "prf_output_length": 16, "identifier_size": 8,
		"b": 2, "bp": 4, "b2": 2, "b2p": 4,
	})
	require.NoError(t, err)
	require.Equal(t, "Pi2Lev", cfg.SchemeName())
}
