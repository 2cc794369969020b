package dbstats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	db := Database{
		"china":   {[]byte("12345678"), []byte("23221233"), []byte("23421232")},
		"ukraine": {[]byte("12345678"), []byte("99999999")},
	}
	s := Compute(db)
	require.Equal(t, 5, s.TotalPostings)
	require.Equal(t, 2, s.Keywords)
	require.Equal(t, 4, s.Files)
}

func TestCloneIsIndependent(t *testing.T) {
	db := Database{"w": {[]byte("id1")}}
	cp := Clone(db)
	cp["w"][0][0] = 'X'
	cp["w2"] = [][]byte{[]byte("new")}

	require.Equal(t, byte('i'), db["w"][0][0])
	_, ok := db["w2"]
	require.False(t, ok)
}
