// Package sse is a library of searchable symmetric encryption schemes for
// inverted-index databases. A data owner holds a mapping from keyword to a
// set of file identifiers and outsources it, encrypted, to an untrusted
// server: the server learns nothing about keywords or identifiers at rest,
// and given a per-keyword search token it can return the matching
// identifier set without learning the keyword in the clear.
//
// Every scheme package under schemes/ exposes the same four operations
// (KeyGen, EDBSetup, TokenGen, Search) as plain functions, since each
// scheme's Config/Key/EDB/Token/Result types differ in shape. This package
// holds the types and registry shared across schemes.
package sse

import (
	"fmt"
	"io"
	"sync"

	"github.com/jezachen/go-sse/internal/errs"
)

// Re-exported error kinds.
// Callers classify errors with errors.Is against these sentinels.
var (
	ErrConfig          = errs.ErrConfig
	ErrSizeOverflow    = errs.ErrSizeOverflow
	ErrDecryption      = errs.ErrDecryption
	ErrSerialization   = errs.ErrSerialization
	ErrPrimitiveLength = errs.ErrLengthMismatch
)

// Database is the plaintext input: keyword -> ordered posting list of file
// identifiers. Identifiers are implementation-opaque byte strings; ordering
// within a posting list must be preserved by schemes whose search results
// are ordered.
type Database map[string][][]byte

// Serializable is implemented by every Key, EDB, Token and Result produced
// by a scheme.
type Serializable interface {
	Serialize() []byte
}

// Config is implemented by every scheme's configuration type.
type Config interface {
	SchemeName() string
}

// Result is the scheme-agnostic outcome of a Search call: the identifiers
// recovered for the searched keyword, in the order each scheme's own
// Search produces them.
type Result struct {
	IDs [][]byte
}

// Scheme identifies one of the nine published constructions this library
// implements and builds its Config from a string-keyed parameter map, e.g.
// as loaded from a TOML file by cmd/ssectl. Beyond Name/NewConfig, it
// exposes the four core operations at a serialized-bytes level so a caller
// that only knows a scheme by name (cmd/ssectl, net/wsrpc) can drive any
// of the nine constructions without importing their concrete Key/EDB/
// Token/Result types.
type Scheme interface {
	Name() string
	NewConfig(params map[string]any) (Config, error)

	// KeyGen returns a serialized Key.
	KeyGen(cfg Config, src io.Reader) ([]byte, error)
	// EDBSetup returns a serialized EDB built from db under keyBytes (a
	// serialized Key).
	EDBSetup(cfg Config, keyBytes []byte, db Database, src io.Reader) ([]byte, error)
	// TokenGen returns a serialized Token for keyword w under keyBytes.
	TokenGen(cfg Config, keyBytes []byte, w string) ([]byte, error)
	// Search evaluates a serialized Token against a serialized EDB.
	Search(cfg Config, edbBytes, tokenBytes []byte) (Result, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Scheme{}
)

// Register adds a scheme to the name->constructor registry. It is called
// from each scheme package's init(), mirroring the "dynamic primitive
// selection" design: a registry built once at startup, no runtime reflection.
func Register(s Scheme) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Name()] = s
}

// Get looks up a registered scheme by name.
func Get(name string) (Scheme, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("sse: %w: unknown scheme %q", ErrConfig, name)
	}
	return s, nil
}

// Names returns the names of all registered schemes.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	return out
}
