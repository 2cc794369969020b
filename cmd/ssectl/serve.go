package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/internal/serial"
	"github.com/jezachen/go-sse/log"
	"github.com/jezachen/go-sse/net/wsrpc"
)

var magicResultIDs = serial.Magic("ssectl/result-ids")

// serveCmd hosts a single named EDB behind a wsrpc.Server, so a remote
// party holding only a token can Search it over a websocket connection.
//
// When --store is given, the EDB is imported once from --edb into an
// edbStore directory (a BoltDict + BoltArray pair) and every request
// reloads it from there; otherwise --edb is read once into memory and
// held for the life of the process.
func serveCmd(c *cli.Context) error {
	scheme, cfg, err := loadSchemeConfig(c.String("config"))
	if err != nil {
		return err
	}
	edbName := c.String("name")
	logger := log.DefaultLogger()

	loadEDB, closeStore, err := edbLoader(c.String("store"), c.String("edb"), scheme.Name(), logger)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	handle := func(req wsrpc.Request) ([]byte, error) {
		if req.EDB != edbName {
			return nil, fmt.Errorf("no such edb %q", req.EDB)
		}
		if req.Scheme != scheme.Name() {
			return nil, fmt.Errorf("edb %q is scheme %q, not %q", edbName, scheme.Name(), req.Scheme)
		}
		edbBytes, err := loadEDB()
		if err != nil {
			return nil, fmt.Errorf("ssectl: serve: loading edb %q: %w", edbName, err)
		}
		res, err := scheme.Search(cfg, edbBytes, req.Token)
		if err != nil {
			return nil, err
		}
		return marshalResultIDs(res), nil
	}

	srv := wsrpc.NewServer(handle, logger)
	mux := http.NewServeMux()
	mux.Handle("/search", srv)

	addr := c.String("addr")
	logger.Infow("ssectl: serving", "addr", addr, "edb", edbName, "scheme", scheme.Name())
	return http.ListenAndServe(addr, mux)
}

// edbLoader builds the function serveCmd calls to fetch the current EDB
// bytes on each request, plus a cleanup func to run on shutdown (nil if
// there's nothing to close).
func edbLoader(storeDir, edbPath, schemeName string, logger log.Logger) (func() ([]byte, error), func(), error) {
	if storeDir == "" {
		edbBytes, err := os.ReadFile(edbPath)
		if err != nil {
			return nil, nil, err
		}
		return func() ([]byte, error) { return edbBytes, nil }, nil, nil
	}

	store, err := openEDBStore(storeDir, logger)
	if err != nil {
		return nil, nil, err
	}
	if edbPath != "" {
		if err := store.ImportFile(schemeName, edbPath); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("ssectl: serve: importing %s into %s: %w", edbPath, storeDir, err)
		}
	}
	loadEDB := func() ([]byte, error) {
		_, edbBytes, err := store.Load()
		return edbBytes, err
	}
	return loadEDB, func() {
		if err := store.Close(); err != nil {
			logger.Errorw("ssectl: closing edb store", "dir", storeDir, "err", err)
		}
	}, nil
}

// marshalResultIDs gives wsrpc.Response.Result one simple, length-prefixed
// wire shape (internal/serial, the same codec every scheme's own Result
// uses) rather than depending on any particular scheme's Result type.
func marshalResultIDs(res sse.Result) []byte {
	w := serial.NewWriter(magicResultIDs)
	w.PutUint32(uint32(len(res.IDs)))
	for _, id := range res.IDs {
		w.PutBytes(id)
	}
	return w.Bytes()
}

func unmarshalResultIDs(data []byte) ([][]byte, error) {
	r, err := serial.CheckMagic(data, magicResultIDs)
	if err != nil {
		return nil, err
	}
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	ids := make([][]byte, n)
	for i := range ids {
		id, err := r.Bytes()
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
