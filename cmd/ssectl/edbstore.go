package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jezachen/go-sse/internal/serial"
	"github.com/jezachen/go-sse/log"
	"github.com/jezachen/go-sse/storage"
)

// edbSlotSize is the fixed chunk size an edbStore splits a serialized EDB
// into before writing it to a storage.Array; the last chunk is
// zero-padded, and the real byte length is recorded separately so it can
// be trimmed back off on load.
const edbSlotSize = 1 << 16

var magicEDBMeta = serial.Magic("ssectl/edb-meta")

// edbStore persists one served EDB's serialized bytes across restarts: a
// storage.BoltDict holds the scheme name and true byte length under a
// single meta key, and a storage.BoltArray holds the bytes themselves as
// a sequence of edbSlotSize chunks. serve reloads the blob from here on
// every request instead of keeping its own long-lived copy in memory.
type edbStore struct {
	dict  *storage.BoltDict
	array *storage.BoltArray
}

// openEDBStore opens (creating if absent) the dict and array files under
// dir.
func openEDBStore(dir string, logger log.Logger) (*edbStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("ssectl: edb store %s: %w", dir, err)
	}
	dict, err := storage.NewBoltDict(filepath.Join(dir, "meta.bolt"), 4, logger)
	if err != nil {
		return nil, err
	}
	array, err := storage.NewBoltArray(filepath.Join(dir, "blocks.bolt"), edbSlotSize, logger)
	if err != nil {
		return nil, err
	}
	if err := dict.Open(); err != nil {
		return nil, err
	}
	if err := array.Open(); err != nil {
		_ = dict.Close()
		return nil, err
	}
	return &edbStore{dict: dict, array: array}, nil
}

func (s *edbStore) Close() error {
	arrErr := s.array.Close()
	dictErr := s.dict.Close()
	if arrErr != nil {
		return arrErr
	}
	return dictErr
}

var edbMetaKey = []byte("edb")

// Import chunks edbBytes into the array, overwriting any slots from a
// previous import, and records scheme and the real length in the dict.
func (s *edbStore) Import(scheme string, edbBytes []byte) error {
	n := len(edbBytes)
	nSlots := (n + edbSlotSize - 1) / edbSlotSize
	for i := 0; i < nSlots; i++ {
		start := i * edbSlotSize
		end := start + edbSlotSize
		slot := make([]byte, edbSlotSize)
		if end > n {
			end = n
		}
		copy(slot, edbBytes[start:end])
		if err := s.array.Set(i, slot); err != nil {
			return fmt.Errorf("ssectl: edb store: writing slot %d: %w", i, err)
		}
	}

	w := serial.NewWriter(magicEDBMeta)
	w.PutBytes([]byte(scheme))
	w.PutUint64(uint64(n))
	if err := s.dict.Put(edbMetaKey, w.Bytes()); err != nil {
		return fmt.Errorf("ssectl: edb store: writing meta: %w", err)
	}
	return nil
}

// ImportFile imports the flat file at path, as produced by ssectl setup,
// reading it through a storage.FileManager rather than os.ReadFile so the
// read goes through the same offset-addressed path a much larger EDB
// would need.
func (s *edbStore) ImportFile(scheme, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	fm := storage.NewFileManager(path, false)
	if err := fm.Open(); err != nil {
		return err
	}
	defer fm.Close()

	buf, err := fm.ReadAt(0, int(info.Size()))
	if err != nil {
		return err
	}
	return s.Import(scheme, buf)
}

// Load reassembles the stored EDB's bytes and the scheme name it was
// imported under, or storage.ErrNotFound if Import has never run.
func (s *edbStore) Load() (scheme string, edbBytes []byte, err error) {
	raw, err := s.dict.Get(edbMetaKey)
	if err != nil {
		return "", nil, err
	}
	r, err := serial.CheckMagic(raw, magicEDBMeta)
	if err != nil {
		return "", nil, err
	}
	schemeBytes, err := r.Bytes()
	if err != nil {
		return "", nil, err
	}
	length, err := r.Uint64()
	if err != nil {
		return "", nil, err
	}

	nSlots := (int(length) + edbSlotSize - 1) / edbSlotSize
	out := make([]byte, 0, length)
	for i := 0; i < nSlots; i++ {
		slot, err := s.array.Get(i)
		if err != nil {
			return "", nil, fmt.Errorf("ssectl: edb store: reading slot %d: %w", i, err)
		}
		out = append(out, slot...)
	}
	return string(schemeBytes), out[:length], nil
}
