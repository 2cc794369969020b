package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileManagerWriteReadImmediate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	fm := NewFileManager(path, false)
	require.NoError(t, fm.Open())
	defer func() { require.NoError(t, fm.Close()) }()

	require.NoError(t, fm.WriteAt(0, []byte("hello")))
	v, err := fm.ReadAt(0, 5)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)
}

func TestFileManagerWritebackBuffersUntilSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	fm := NewFileManager(path, true)
	require.NoError(t, fm.Open())
	defer func() { require.NoError(t, fm.Close()) }()

	require.NoError(t, fm.WriteAt(0, []byte("cached")))
	// readable from the writeback cache before Sync
	v, err := fm.ReadAt(0, 6)
	require.NoError(t, err)
	require.Equal(t, []byte("cached"), v)

	require.NoError(t, fm.Sync())
}

func TestFileManagerClosedHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	fm := NewFileManager(path, false)
	_, err := fm.ReadAt(0, 1)
	require.ErrorIs(t, err, ErrClosed)

	require.NoError(t, fm.Open())
	require.NoError(t, fm.Close())
	require.NoError(t, fm.Close())
	err = fm.WriteAt(0, []byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestFileManagerPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	fm := NewFileManager(path, false)
	require.NoError(t, fm.Open())
	require.NoError(t, fm.WriteAt(0, []byte("persisted")))
	require.NoError(t, fm.Close())

	fm2 := NewFileManager(path, false)
	require.NoError(t, fm2.Open())
	defer func() { require.NoError(t, fm2.Close()) }()
	v, err := fm2.ReadAt(0, 9)
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), v)
}
