package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEDBLoaderFlatFile(t *testing.T) {
	dir := t.TempDir()
	edbPath := filepath.Join(dir, "edb.bin")
	require.NoError(t, os.WriteFile(edbPath, []byte("flat edb bytes"), 0o600))

	load, closeFn, err := edbLoader("", edbPath, "SSE2", nil)
	require.NoError(t, err)
	require.Nil(t, closeFn)

	got, err := load()
	require.NoError(t, err)
	require.Equal(t, []byte("flat edb bytes"), got)
}

func TestEDBLoaderStorePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	edbPath := filepath.Join(dir, "edb.bin")
	storeDir := filepath.Join(dir, "store")
	require.NoError(t, os.WriteFile(edbPath, []byte("stored edb bytes"), 0o600))

	load, closeFn, err := edbLoader(storeDir, edbPath, "PiBas", nil)
	require.NoError(t, err)
	require.NotNil(t, closeFn)

	got, err := load()
	require.NoError(t, err)
	require.Equal(t, []byte("stored edb bytes"), got)
	closeFn()

	// Reopening the same store directory without --edb should still find
	// the previously imported bytes.
	load2, closeFn2, err := edbLoader(storeDir, "", "PiBas", nil)
	require.NoError(t, err)
	defer closeFn2()

	got2, err := load2()
	require.NoError(t, err)
	require.Equal(t, []byte("stored edb bytes"), got2)
}
