package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoltArrayAppendGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "array.db")
	a, err := NewBoltArray(path, 4, nil)
	require.NoError(t, err)
	require.NoError(t, a.Open())
	defer func() { require.NoError(t, a.Close()) }()

	idx, err := a.Append([]byte("aaaa"))
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	idx, err = a.Append([]byte("bbbb"))
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	n, err := a.Len()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	v, err := a.Get(0)
	require.NoError(t, err)
	require.Equal(t, []byte("aaaa"), v)

	v, err = a.Get(1)
	require.NoError(t, err)
	require.Equal(t, []byte("bbbb"), v)
}

func TestBoltArraySetExtendsLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "array.db")
	a, err := NewBoltArray(path, 4, nil)
	require.NoError(t, err)
	require.NoError(t, a.Open())
	defer func() { require.NoError(t, a.Close()) }()

	require.NoError(t, a.Set(2, []byte("cccc")))
	n, err := a.Len()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	v, err := a.Get(2)
	require.NoError(t, err)
	require.Equal(t, []byte("cccc"), v)

	_, err = a.Get(0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBoltArrayWrongSlotSizeRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "array.db")
	a, err := NewBoltArray(path, 4, nil)
	require.NoError(t, err)
	require.NoError(t, a.Open())
	defer func() { require.NoError(t, a.Close()) }()

	_, err = a.Append([]byte("too-long"))
	require.Error(t, err)
}

func TestBoltArrayClosedHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "array.db")
	a, err := NewBoltArray(path, 4, nil)
	require.NoError(t, err)
	_, err = a.Get(0)
	require.ErrorIs(t, err, ErrClosed)
	require.NoError(t, a.Open())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	_, err = a.Get(0)
	require.ErrorIs(t, err, ErrClosed)
}

func TestBoltArrayPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "array.db")
	a, err := NewBoltArray(path, 4, nil)
	require.NoError(t, err)
	require.NoError(t, a.Open())
	_, err = a.Append([]byte("dddd"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a2, err := NewBoltArray(path, 4, nil)
	require.NoError(t, err)
	require.NoError(t, a2.Open())
	defer func() { require.NoError(t, a2.Close()) }()
	v, err := a2.Get(0)
	require.NoError(t, err)
	require.Equal(t, []byte("dddd"), v)
}
