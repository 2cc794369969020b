// Package ske implements an IND-CPA symmetric encryption primitive:
// AES-CBC with PKCS#7 padding and a fresh random IV prepended to the
// ciphertext.
package ske

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/layout/randsrc"
)

var (
	// ErrDecryption is an alias of errs.ErrDecryption for use with errors.Is.
	ErrDecryption = errs.ErrDecryption
	// ErrLengthMismatch is an alias of errs.ErrLengthMismatch for use with errors.Is.
	ErrLengthMismatch = errs.ErrLengthMismatch
)

const blockSize = aes.BlockSize // 16

// SKE is an IND-CPA symmetric encryption scheme with random IVs.
type SKE struct {
	keyLen int
}

// New builds an AES-CBC SKE instance. keyLen must be 16, 24 or 32.
func New(keyLen int) (*SKE, error) {
	switch keyLen {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("ske: AES key length must be 16, 24 or 32 bytes, got %d", keyLen)
	}
	return &SKE{keyLen: keyLen}, nil
}

// KeyGen samples a uniformly random key of the configured length.
func (s *SKE) KeyGen(src randsrc.Source) ([]byte, error) {
	key := make([]byte, s.keyLen)
	if _, err := io.ReadFull(src, key); err != nil {
		return nil, fmt.Errorf("ske: key generation failed: %w", err)
	}
	return key, nil
}

// CiphertextLen returns the deterministic ciphertext length for a plaintext
// of length msgLen: 16 + 16*ceil((msgLen+1)/16).
func CiphertextLen(msgLen int) int {
	return blockSize + blockSize*((msgLen+1+blockSize-1)/blockSize)
}

func pkcs7Pad(data []byte, blockLen int) []byte {
	padLen := blockLen - len(data)%blockLen
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("ske: %w: invalid padded length", ErrDecryption)
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("ske: %w: invalid padding length", ErrDecryption)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("ske: %w: invalid padding bytes", ErrDecryption)
		}
	}
	return data[:len(data)-padLen], nil
}

// Encrypt returns IV ‖ AES-CBC(k, IV, PKCS7-pad(m)) using a fresh IV drawn
// from src.
func (s *SKE) Encrypt(key, msg []byte, src randsrc.Source) ([]byte, error) {
	if len(key) != s.keyLen {
		return nil, fmt.Errorf("ske: %w: key length mismatch", ErrLengthMismatch)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ske: %w", err)
	}

	iv := make([]byte, blockSize)
	if _, err := io.ReadFull(src, iv); err != nil {
		return nil, fmt.Errorf("ske: IV generation failed: %w", err)
	}

	padded := pkcs7Pad(msg, blockSize)
	out := make([]byte, blockSize+len(padded))
	copy(out, iv)

	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out[blockSize:], padded)
	return out, nil
}

// Decrypt splits the IV and ciphertext, decrypts, and un-pads. Any padding
// or length fault returns ErrDecryption.
func (s *SKE) Decrypt(key, ct []byte) ([]byte, error) {
	if len(key) != s.keyLen {
		return nil, fmt.Errorf("ske: %w: key length mismatch", ErrLengthMismatch)
	}
	if len(ct) < blockSize || len(ct)%blockSize != 0 {
		return nil, fmt.Errorf("ske: %w: invalid ciphertext length", ErrDecryption)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ske: %w", err)
	}

	iv, body := ct[:blockSize], ct[blockSize:]
	if len(body) == 0 {
		return nil, fmt.Errorf("ske: %w: empty ciphertext body", ErrDecryption)
	}

	padded := make([]byte, len(body))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(padded, body)

	return pkcs7Unpad(padded)
}
