// Package serial provides the shared wire-format helpers every scheme's
// Key/EDB/Token/Result Serialize/Deserialize pair builds on: a fixed-width
// magic header followed by a length-prefixed
// body, so nine otherwise-identical encode/decode routines share one
// tested implementation.
package serial

import (
	"encoding/binary"
	"fmt"

	"github.com/jezachen/go-sse/internal/errs"
)

// MagicLen is the fixed magic header length used by every scheme in this
// module, chosen from the middle of the documented 18-22 byte range.
const MagicLen = 20

// Magic pads or truncates tag to exactly MagicLen bytes with trailing
// NUL bytes, for use as a per-structure-kind constant.
func Magic(tag string) [MagicLen]byte {
	var m [MagicLen]byte
	copy(m[:], tag)
	return m
}

// Writer accumulates a serialized body after a magic header.
type Writer struct {
	buf []byte
}

// NewWriter starts a Writer with the given magic header.
func NewWriter(magic [MagicLen]byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 256)}
	w.buf = append(w.buf, magic[:]...)
	return w
}

// Bytes returns the accumulated serialized form.
func (w *Writer) Bytes() []byte { return w.buf }

// PutUint32 appends a 4-byte big-endian integer.
func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutUint64 appends an 8-byte big-endian integer.
func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutBytes appends a 4-byte length prefix followed by data.
func (w *Writer) PutBytes(data []byte) {
	w.PutUint32(uint32(len(data)))
	w.buf = append(w.buf, data...)
}

// PutFixed appends data verbatim, with no length prefix, for fields whose
// length is implied by the configuration rather than stored on the wire.
func (w *Writer) PutFixed(data []byte) {
	w.buf = append(w.buf, data...)
}

// Reader consumes a serialized body after its magic header has been
// checked and stripped by CheckMagic.
type Reader struct {
	buf []byte
	pos int
}

// CheckMagic verifies data begins with the given magic header and returns a
// Reader positioned just after it.
func CheckMagic(data []byte, magic [MagicLen]byte) (*Reader, error) {
	if len(data) < MagicLen {
		return nil, fmt.Errorf("serial: %w: data shorter than magic header", errs.ErrSerialization)
	}
	for i := 0; i < MagicLen; i++ {
		if data[i] != magic[i] {
			return nil, fmt.Errorf("serial: %w: bad magic header", errs.ErrSerialization)
		}
	}
	return &Reader{buf: data[MagicLen:]}, nil
}

func (r *Reader) remaining() int { return len(r.buf) - r.pos }

// Uint32 reads a 4-byte big-endian integer.
func (r *Reader) Uint32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("serial: %w: truncated uint32", errs.ErrSerialization)
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// Uint64 reads an 8-byte big-endian integer.
func (r *Reader) Uint64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, fmt.Errorf("serial: %w: truncated uint64", errs.ErrSerialization)
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// Bytes reads a 4-byte length prefix followed by that many bytes.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if r.remaining() < int(n) {
		return nil, fmt.Errorf("serial: %w: truncated byte field", errs.ErrSerialization)
	}
	out := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return append([]byte{}, out...), nil
}

// Fixed reads exactly n bytes with no length prefix.
func (r *Reader) Fixed(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("serial: %w: truncated fixed field", errs.ErrSerialization)
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return append([]byte{}, out...), nil
}

// Done reports whether the reader has consumed the entire body, i.e. no
// trailing garbage remains.
func (r *Reader) Done() bool { return r.remaining() == 0 }

// PutStringBytesMap appends a dictionary of string-keyed byte values as a
// count followed by (key, value) length-prefixed pairs, in an order
// supplied by the caller (schemes serialize in insertion order of their
// own choosing, since the dictionary's label already constitutes its key).
func (w *Writer) PutStringBytesMap(keys []string, m map[string][]byte) {
	w.PutUint32(uint32(len(keys)))
	for _, k := range keys {
		w.PutBytes([]byte(k))
		w.PutBytes(m[k])
	}
}

// StringBytesMap reads back a dictionary written by PutStringBytesMap.
func (r *Reader) StringBytesMap() (map[string][]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	m := make(map[string][]byte, n)
	for i := uint32(0); i < n; i++ {
		k, err := r.Bytes()
		if err != nil {
			return nil, err
		}
		v, err := r.Bytes()
		if err != nil {
			return nil, err
		}
		m[string(k)] = v
	}
	return m, nil
}
