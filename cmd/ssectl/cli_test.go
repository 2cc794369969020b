package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jezachen/go-sse/net/wsrpc"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sse2Config = `
scheme = "SSE2"

[params]
k = 16
l = 8
n = 3
max_file_size = 3
identifier_size = 8
`

const sse2Database = `{"alice": ["646f633030303031", "646f633030303032"], "bob": ["646f633030303033"]}`

func TestKeygenSetupTokenSearchPipeline(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "cfg.toml", sse2Config)
	dbPath := writeFile(t, dir, "db.json", sse2Database)
	keyPath := filepath.Join(dir, "key.bin")
	edbPath := filepath.Join(dir, "edb.bin")
	tokPath := filepath.Join(dir, "token.bin")

	app := CLI()
	require.NoError(t, app.Run([]string{"ssectl", "keygen", "--config", cfgPath, "--out", keyPath}))
	require.NoError(t, app.Run([]string{"ssectl", "setup", "--config", cfgPath, "--key", keyPath, "--db", dbPath, "--out", edbPath}))
	require.NoError(t, app.Run([]string{"ssectl", "token", "--config", cfgPath, "--key", keyPath, "--keyword", "alice", "--out", tokPath}))

	var buf strings.Builder
	output = &buf
	defer func() { output = os.Stdout }()
	require.NoError(t, app.Run([]string{"ssectl", "search", "--config", cfgPath, "--edb", edbPath, "--token", tokPath}))

	lines := strings.Fields(buf.String())
	require.Equal(t, []string{"646f633030303031", "646f633030303032"}, lines)
}

func TestSchemesListsRegisteredNames(t *testing.T) {
	var buf strings.Builder
	output = &buf
	defer func() { output = os.Stdout }()

	app := CLI()
	require.NoError(t, app.Run([]string{"ssectl", "schemes"}))
	require.Contains(t, buf.String(), "SSE2")
	require.Contains(t, buf.String(), "SSE1")
}

func TestStatsCountsDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeFile(t, dir, "db.json", sse2Database)

	var buf strings.Builder
	output = &buf
	defer func() { output = os.Stdout }()

	app := CLI()
	require.NoError(t, app.Run([]string{"ssectl", "stats", "--db", dbPath}))
	require.Equal(t, "postings: 3\nkeywords: 2\nfiles: 3\n", buf.String())
}

func TestServeAndQueryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "cfg.toml", sse2Config)
	dbPath := writeFile(t, dir, "db.json", sse2Database)
	keyPath := filepath.Join(dir, "key.bin")
	edbPath := filepath.Join(dir, "edb.bin")
	tokPath := filepath.Join(dir, "token.bin")

	app := CLI()
	require.NoError(t, app.Run([]string{"ssectl", "keygen", "--config", cfgPath, "--out", keyPath}))
	require.NoError(t, app.Run([]string{"ssectl", "setup", "--config", cfgPath, "--key", keyPath, "--db", dbPath, "--out", edbPath}))
	require.NoError(t, app.Run([]string{"ssectl", "token", "--config", cfgPath, "--key", keyPath, "--keyword", "bob", "--out", tokPath}))

	scheme, cfg, err := loadSchemeConfig(cfgPath)
	require.NoError(t, err)
	edbBytes, err := os.ReadFile(edbPath)
	require.NoError(t, err)

	handle := func(req wsrpc.Request) ([]byte, error) {
		res, err := scheme.Search(cfg, edbBytes, req.Token)
		if err != nil {
			return nil, err
		}
		return marshalResultIDs(res), nil
	}
	ts := httptest.NewServer(wsrpc.NewServer(handle, nil))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/search"
	var buf strings.Builder
	output = &buf
	defer func() { output = os.Stdout }()

	app2 := CLI()
	require.NoError(t, app2.Run([]string{
		"ssectl", "query",
		"--url", url,
		"--scheme", "SSE2",
		"--name", "default",
		"--token", tokPath,
	}))
	require.Equal(t, "646f633030303033", strings.TrimSpace(buf.String()))
}
