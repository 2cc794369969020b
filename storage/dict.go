// Package storage implements two optional persistent collaborators, a
// byte-keyed dictionary and a fixed-slot array, that a caller may use to
// back an EDB's D and A structures on disk instead of in memory. The
// cryptographic core never imports this package; the schemes keep D and A
// as in-memory Go maps and slices.
package storage

import (
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	bolt "go.etcd.io/bbolt"

	"github.com/jezachen/go-sse/log"
)

var dictBucket = []byte("sse-dict")

// Dict is a persistent mapping from byte keys to byte values.
type Dict interface {
	Open() error
	Close() error
	Sync() error
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Iter(func(key, value []byte) error) error
	Len() (int, error)
	Contains(key []byte) (bool, error)
}

// state discriminates an open handle from a closed one, so every method
// can check it up front rather than relying on a nil pointer.
type state int

const (
	stateClosed state = iota
	stateOpen
)

// BoltDict is a Dict backed by the embedded key-value store
// go.etcd.io/bbolt, with a
// hashicorp/golang-lru read cache in front of it and a path-keyed mutex
// guarding concurrent opens of the same file (pathlock.go).
type BoltDict struct {
	path  string
	db    *bolt.DB
	cache *lru.Cache
	guard *pathGuard
	st    state
	log   log.Logger
}

// NewBoltDict builds a BoltDict for path, with cacheSize entries cached in
// memory (0 disables caching).
func NewBoltDict(path string, cacheSize int, logger log.Logger) (*BoltDict, error) {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	var cache *lru.Cache
	if cacheSize > 0 {
		c, err := lru.New(cacheSize)
		if err != nil {
			return nil, err
		}
		cache = c
	}
	return &BoltDict{path: filepath.Clean(path), cache: cache, log: logger}, nil
}

// Open acquires the path lock and opens the underlying bbolt file,
// creating dictBucket if absent.
func (d *BoltDict) Open() error {
	if d.st == stateOpen {
		return nil
	}
	d.guard = acquirePath(d.path)
	db, err := bolt.Open(d.path, 0o660, nil)
	if err != nil {
		d.guard.Release()
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dictBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		d.guard.Release()
		return err
	}
	d.db = db
	d.st = stateOpen
	return nil
}

func (d *BoltDict) checkOpen() error {
	if d.st != stateOpen {
		return ErrClosed
	}
	return nil
}

// Close flushes and releases the underlying file and path lock. Close is
// safe to call on an already-closed handle.
func (d *BoltDict) Close() error {
	if d.st != stateOpen {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	d.st = stateClosed
	d.guard.Release()
	if err != nil {
		d.log.Errorw("closing bolt dict", "path", d.path, "err", err)
	}
	return err
}

// Sync flushes pending writes to disk.
func (d *BoltDict) Sync() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	return d.db.Sync()
}

// Get returns the value stored at key, or ErrNotFound.
func (d *BoltDict) Get(key []byte) ([]byte, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if d.cache != nil {
		if v, ok := d.cache.Get(string(key)); ok {
			return v.([]byte), nil
		}
	}
	var out []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(dictBucket).Get(key)
		if v == nil {
			return ErrNotFound
		}
		out = append([]byte{}, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		d.cache.Add(string(key), out)
	}
	return out, nil
}

// Put writes value at key, overwriting any existing entry.
func (d *BoltDict) Put(key, value []byte) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dictBucket).Put(key, value)
	})
	if err != nil {
		return err
	}
	if d.cache != nil {
		d.cache.Add(string(key), append([]byte{}, value...))
	}
	return nil
}

// Delete removes key, if present.
func (d *BoltDict) Delete(key []byte) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(dictBucket).Delete(key)
	})
	if err != nil {
		return err
	}
	if d.cache != nil {
		d.cache.Remove(string(key))
	}
	return nil
}

// Iter calls fn once per (key, value) pair. Iteration order is bbolt's
// natural byte-lexicographic key order.
func (d *BoltDict) Iter(fn func(key, value []byte) error) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	return d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(dictBucket).ForEach(fn)
	})
}

// Len performs a full bucket scan and should be used sparingly.
func (d *BoltDict) Len() (int, error) {
	if err := d.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	err := d.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(dictBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Contains reports whether key is present.
func (d *BoltDict) Contains(key []byte) (bool, error) {
	_, err := d.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
