package storage

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/jezachen/go-sse/log"
)

var arrayBucket = []byte("sse-array")

// Array is a persistent, indexable sequence of fixed-size byte slots. Get
// on an index beyond Len, or never written, returns ErrNotFound.
type Array interface {
	Open() error
	Close() error
	Sync() error
	Len() (int, error)
	SlotSize() int
	Get(index int) ([]byte, error)
	Set(index int, value []byte) error
	Append(value []byte) (int, error)
}

// BoltArray is an Array backed by go.etcd.io/bbolt, storing each slot under
// its big-endian uint64 index so bbolt's natural key ordering matches slot
// order; a length counter lives under a dedicated meta key so Len and
// Append don't require a bucket scan.
type BoltArray struct {
	path     string
	slotSize int
	db       *bolt.DB
	guard    *pathGuard
	st       state
	log      log.Logger
}

var metaLenKey = []byte("len")

// NewBoltArray builds a BoltArray for path with a fixed slotSize.
func NewBoltArray(path string, slotSize int, logger log.Logger) (*BoltArray, error) {
	if slotSize <= 0 {
		return nil, fmt.Errorf("storage: slotSize must be positive, got %d", slotSize)
	}
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &BoltArray{path: filepath.Clean(path), slotSize: slotSize, log: logger}, nil
}

func (a *BoltArray) Open() error {
	if a.st == stateOpen {
		return nil
	}
	a.guard = acquirePath(a.path)
	db, err := bolt.Open(a.path, 0o660, nil)
	if err != nil {
		a.guard.Release()
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(arrayBucket)
		if err != nil {
			return err
		}
		if b.Get(metaLenKey) == nil {
			return b.Put(metaLenKey, encodeUint64(0))
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		a.guard.Release()
		return err
	}
	a.db = db
	a.st = stateOpen
	return nil
}

func (a *BoltArray) checkOpen() error {
	if a.st != stateOpen {
		return ErrClosed
	}
	return nil
}

func (a *BoltArray) Close() error {
	if a.st != stateOpen {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	a.st = stateClosed
	a.guard.Release()
	if err != nil {
		a.log.Errorw("closing bolt array", "path", a.path, "err", err)
	}
	return err
}

func (a *BoltArray) Sync() error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	return a.db.Sync()
}

func (a *BoltArray) SlotSize() int { return a.slotSize }

func (a *BoltArray) Len() (int, error) {
	if err := a.checkOpen(); err != nil {
		return 0, err
	}
	var n uint64
	err := a.db.View(func(tx *bolt.Tx) error {
		n = decodeUint64(tx.Bucket(arrayBucket).Get(metaLenKey))
		return nil
	})
	return int(n), err
}

func (a *BoltArray) Get(index int) ([]byte, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	var out []byte
	err := a.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(arrayBucket).Get(encodeUint64(uint64(index)))
		if v == nil {
			return ErrNotFound
		}
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set writes value, which must be exactly SlotSize bytes, atomically into
// slot index, raising the length counter to index+1 if index is at or
// beyond the current length.
func (a *BoltArray) Set(index int, value []byte) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	if len(value) != a.slotSize {
		return fmt.Errorf("storage: Set: value length %d does not match slot size %d", len(value), a.slotSize)
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(arrayBucket)
		if err := b.Put(encodeUint64(uint64(index)), value); err != nil {
			return err
		}
		n := decodeUint64(b.Get(metaLenKey))
		if uint64(index) >= n {
			return b.Put(metaLenKey, encodeUint64(uint64(index)+1))
		}
		return nil
	})
}

// Append writes value at the current length and advances it by one slot,
// returning the index it was written to.
func (a *BoltArray) Append(value []byte) (int, error) {
	if err := a.checkOpen(); err != nil {
		return 0, err
	}
	if len(value) != a.slotSize {
		return 0, fmt.Errorf("storage: Append: value length %d does not match slot size %d", len(value), a.slotSize)
	}
	var idx uint64
	err := a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(arrayBucket)
		idx = decodeUint64(b.Get(metaLenKey))
		if err := b.Put(encodeUint64(idx), value); err != nil {
			return err
		}
		return b.Put(metaLenKey, encodeUint64(idx+1))
	})
	if err != nil {
		return 0, err
	}
	return int(idx), nil
}

func encodeUint64(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func decodeUint64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
