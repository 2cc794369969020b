package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoltDictPutGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.db")
	d, err := NewBoltDict(path, 0, nil)
	require.NoError(t, err)
	require.NoError(t, d.Open())
	defer func() { require.NoError(t, d.Close()) }()

	ok, err := d.Contains([]byte("alice"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, d.Put([]byte("alice"), []byte("doc1")))
	v, err := d.Get([]byte("alice"))
	require.NoError(t, err)
	require.Equal(t, []byte("doc1"), v)

	ok, err = d.Contains([]byte("alice"))
	require.NoError(t, err)
	require.True(t, ok)

	n, err := d.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, d.Delete([]byte("alice")))
	_, err = d.Get([]byte("alice"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBoltDictClosedHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.db")
	d, err := NewBoltDict(path, 0, nil)
	require.NoError(t, err)
	_, err = d.Get([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, d.Open())
	require.NoError(t, d.Close())
	require.NoError(t, d.Close()) // idempotent
	_, err = d.Get([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestBoltDictPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.db")
	d, err := NewBoltDict(path, 0, nil)
	require.NoError(t, err)
	require.NoError(t, d.Open())
	require.NoError(t, d.Put([]byte("k"), []byte("v")))
	require.NoError(t, d.Close())

	d2, err := NewBoltDict(path, 0, nil)
	require.NoError(t, err)
	require.NoError(t, d2.Open())
	defer func() { require.NoError(t, d2.Close()) }()
	v, err := d2.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestBoltDictIter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.db")
	d, err := NewBoltDict(path, 4, nil)
	require.NoError(t, err)
	require.NoError(t, d.Open())
	defer func() { require.NoError(t, d.Close()) }()

	require.NoError(t, d.Put([]byte("a"), []byte("1")))
	require.NoError(t, d.Put([]byte("b"), []byte("2")))

	seen := map[string]string{}
	err = d.Iter(func(k, v []byte) error {
		seen[string(k)] = string(v)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, seen)
}

func TestBoltDictCacheReflectsSameHandleWrites(t *testing.T) {
	// Documents the cache's read-through semantics: a cached Get reflects
	// writes made through the same handle, since Put refreshes the cache.
	path := filepath.Join(t.TempDir(), "dict.db")
	d, err := NewBoltDict(path, 4, nil)
	require.NoError(t, err)
	require.NoError(t, d.Open())
	defer func() { require.NoError(t, d.Close()) }()

	require.NoError(t, d.Put([]byte("k"), []byte("v1")))
	v, err := d.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	require.NoError(t, d.Put([]byte("k"), []byte("v2")))
	v, err = d.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
}
