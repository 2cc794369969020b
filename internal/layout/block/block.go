// Package block implements the packed-block codec shared by the
// counter-indexed and pointer-based SSE schemes: fixed-size identifier
// arrays packed into bucket bytes, zero-padded, with an all-zero
// identifier reserved as the end-of-data sentinel.
//
// Callers using this codec must guarantee that real identifiers are never
// all-zero; schemes built on it either choose an identifier
// space that excludes the all-zero value or avoid the codec entirely.
package block

import "bytes"

// Partition packs ids into fixed-entryCount blocks of idSize-byte slots,
// zero-padding the last block, and invokes emit once per block in order.
func Partition(ids [][]byte, entryCount, idSize int, emit func(blk []byte) error) error {
	blockSize := entryCount * idSize
	for i := 0; i < len(ids); i += entryCount {
		end := i + entryCount
		if end > len(ids) {
			end = len(ids)
		}
		blk := make([]byte, blockSize)
		for j := i; j < end; j++ {
			copy(blk[(j-i)*idSize:], ids[j])
		}
		if err := emit(blk); err != nil {
			return err
		}
	}
	return nil
}

// ParseByIDSize reads fixed idSize-byte identifiers left-to-right from blk,
// stopping at the first all-zero identifier (or end of block).
func ParseByIDSize(blk []byte, idSize int) [][]byte {
	zero := make([]byte, idSize)
	var out [][]byte
	for off := 0; off+idSize <= len(blk); off += idSize {
		id := blk[off : off+idSize]
		if bytes.Equal(id, zero) {
			break
		}
		out = append(out, append([]byte{}, id...))
	}
	return out
}

// ParseByCount reads exactly count fixed-size identifiers (idSize =
// len(blk)/count) from blk, stopping early at the first all-zero identifier.
func ParseByCount(blk []byte, count int) [][]byte {
	if count == 0 {
		return nil
	}
	idSize := len(blk) / count
	return ParseByIDSize(blk, idSize)
}
