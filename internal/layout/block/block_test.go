package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionAndParseRoundTrip(t *testing.T) {
	ids := [][]byte{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
	}

	var blocks [][]byte
	err := Partition(ids, 2, 4, func(blk []byte) error {
		blocks = append(blocks, blk)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Len(t, blocks[0], 8)
	require.Len(t, blocks[1], 8)

	var parsed [][]byte
	for _, blk := range blocks {
		parsed = append(parsed, ParseByIDSize(blk, 4)...)
	}
	require.Equal(t, ids, parsed)
}

func TestParseByCountStopsAtSentinel(t *testing.T) {
	blk := append(append([]byte{1, 1, 1, 1}, make([]byte, 4)...), []byte{9, 9, 9, 9}...)
	parsed := ParseByCount(blk, 3)
	require.Equal(t, [][]byte{{1, 1, 1, 1}}, parsed)
}
