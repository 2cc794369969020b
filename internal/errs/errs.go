// Package errs defines the sentinel error kinds shared across the
// primitive and scheme layers.
// The top-level sse package re-exports these under public names.
package errs

import "errors"

var (
	// ErrConfig marks a configuration error: a required field is missing,
	// a primitive name is unknown, or a parameter is otherwise invalid.
	ErrConfig = errors.New("sse: configuration error")

	// ErrSizeOverflow marks a database that does not fit the chosen
	// scheme parameters (e.g. a pointer index would not fit in the
	// configured index size).
	ErrSizeOverflow = errors.New("sse: size overflow")

	// ErrDecryption marks a ciphertext or padding fault during decryption.
	ErrDecryption = errors.New("sse: decryption fault")

	// ErrSerialization marks a malformed serialized structure: bad magic
	// header, truncated data, or a type mismatch on decode.
	ErrSerialization = errors.New("sse: serialization fault")

	// ErrLengthMismatch marks a primitive called with a wrong-sized key
	// or message; it indicates a programming bug, not bad input data.
	ErrLengthMismatch = errors.New("sse: primitive length mismatch")
)
