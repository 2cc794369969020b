// Package pibas implements PiBas (CJJ+14): a counter-indexed dictionary
// mapping one encrypted cell per (keyword, identifier) pair.
package pibas

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/layout/randsrc"
	"github.com/jezachen/go-sse/internal/serial"
	"github.com/jezachen/go-sse/key"
)

const name = "PiBas"

var (
	magicKey   = serial.Magic("sse/pibas/key")
	magicEDB   = serial.Magic("sse/pibas/edb")
	magicToken = serial.Magic("sse/pibas/tok")
	magicResul = serial.Magic("sse/pibas/res")
)

// Key is the single master key PiBas derives per-keyword sub-keys from.
type Key struct {
	K []byte
}

// EDB is the encrypted database: a dictionary from opaque label to
// encrypted cell, with no structure visible beyond membership.
type EDB struct {
	D map[string][]byte
}

// Token is the pair of per-keyword derived keys needed to walk D.
type Token struct {
	K1, K2 []byte
}

// Result is the ordered list of identifiers recovered by Search.
type Result struct {
	IDs [][]byte
}

func (k Key) Serialize() []byte {
	w := serial.NewWriter(magicKey)
	w.PutBytes(k.K)
	return w.Bytes()
}

// DeserializeKey parses a Key previously produced by Key.Serialize.
func DeserializeKey(data []byte) (Key, error) {
	r, err := serial.CheckMagic(data, magicKey)
	if err != nil {
		return Key{}, err
	}
	k, err := r.Bytes()
	if err != nil {
		return Key{}, err
	}
	return Key{K: k}, nil
}

func (e EDB) Serialize() []byte {
	w := serial.NewWriter(magicEDB)
	keys := make([]string, 0, len(e.D))
	for k := range e.D {
		keys = append(keys, k)
	}
	w.PutStringBytesMap(keys, e.D)
	return w.Bytes()
}

// DeserializeEDB parses an EDB previously produced by EDB.Serialize.
func DeserializeEDB(data []byte) (EDB, error) {
	r, err := serial.CheckMagic(data, magicEDB)
	if err != nil {
		return EDB{}, err
	}
	d, err := r.StringBytesMap()
	if err != nil {
		return EDB{}, err
	}
	return EDB{D: d}, nil
}

func (t Token) Serialize() []byte {
	w := serial.NewWriter(magicToken)
	w.PutBytes(t.K1)
	w.PutBytes(t.K2)
	return w.Bytes()
}

// DeserializeToken parses a Token previously produced by Token.Serialize.
func DeserializeToken(data []byte) (Token, error) {
	r, err := serial.CheckMagic(data, magicToken)
	if err != nil {
		return Token{}, err
	}
	k1, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	k2, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	return Token{K1: k1, K2: k2}, nil
}

func (res Result) Serialize() []byte {
	w := serial.NewWriter(magicResul)
	w.PutUint32(uint32(len(res.IDs)))
	for _, id := range res.IDs {
		w.PutBytes(id)
	}
	return w.Bytes()
}

// DeserializeResult parses a Result previously produced by Result.Serialize.
func DeserializeResult(data []byte) (Result, error) {
	r, err := serial.CheckMagic(data, magicResul)
	if err != nil {
		return Result{}, err
	}
	n, err := r.Uint32()
	if err != nil {
		return Result{}, err
	}
	ids := make([][]byte, n)
	for i := range ids {
		id, err := r.Bytes()
		if err != nil {
			return Result{}, err
		}
		ids[i] = id
	}
	return Result{IDs: ids}, nil
}

// KeyGen samples a single uniform λ-byte master key.
func KeyGen(cfg *config.PiBasConfig, src randsrc.Source) (Key, error) {
	ks, err := key.Generate(src, 1, cfg.Lambda)
	if err != nil {
		return Key{}, fmt.Errorf("pibas: KeyGen: %w", err)
	}
	return Key{K: ks[0]}, nil
}

// deriveCellKeys derives the per-keyword label key K1 and payload key K2.
// Both are sized to cfg.Lambda bytes since K2 is used directly as an SKE
// key; the label PRF itself is called with cfg.PRFOutputLength, a separate
// output-length parameter from the label-derivation PRF's own.
func deriveCellKeys(cfg *config.PiBasConfig, masterKey, w []byte) (k1, k2 []byte, err error) {
	k1, err = cfg.PRF().Sum(masterKey, append([]byte{0x01}, w...), cfg.Lambda)
	if err != nil {
		return nil, nil, err
	}
	k2, err = cfg.PRF().Sum(masterKey, append([]byte{0x02}, w...), cfg.Lambda)
	if err != nil {
		return nil, nil, err
	}
	return k1, k2, nil
}

func counterBytes(c int) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(c))
	return b[:]
}

// EDBSetup builds the encrypted database for db under key.
func EDBSetup(cfg *config.PiBasConfig, key Key, db sse.Database, src randsrc.Source) (EDB, error) {
	d := make(map[string][]byte)
	for w, ids := range db {
		k1, k2, err := deriveCellKeys(cfg, key.K, []byte(w))
		if err != nil {
			return EDB{}, fmt.Errorf("pibas: EDBSetup: %w", err)
		}
		for c, id := range ids {
			label, err := cfg.PRF().Sum(k1, counterBytes(c), cfg.PRFOutputLength)
			if err != nil {
				return EDB{}, fmt.Errorf("pibas: EDBSetup: %w", err)
			}
			ct, err := cfg.SKE().Encrypt(k2, id, src)
			if err != nil {
				return EDB{}, fmt.Errorf("pibas: EDBSetup: %w", err)
			}
			d[string(label)] = ct
		}
	}
	return EDB{D: d}, nil
}

// TokenGen derives the per-keyword cell keys needed to walk the dictionary.
func TokenGen(cfg *config.PiBasConfig, key Key, w string) (Token, error) {
	k1, k2, err := deriveCellKeys(cfg, key.K, []byte(w))
	if err != nil {
		return Token{}, fmt.Errorf("pibas: TokenGen: %w", err)
	}
	return Token{K1: k1, K2: k2}, nil
}

// Search walks the counter-indexed dictionary until the first miss.
func Search(cfg *config.PiBasConfig, edb EDB, tok Token) (Result, error) {
	var ids [][]byte
	for c := 0; ; c++ {
		label, err := cfg.PRF().Sum(tok.K1, counterBytes(c), cfg.PRFOutputLength)
		if err != nil {
			return Result{}, fmt.Errorf("pibas: Search: %w", err)
		}
		ct, ok := edb.D[string(label)]
		if !ok {
			break
		}
		id, err := cfg.SKE().Decrypt(tok.K2, ct)
		if err != nil {
			return Result{}, fmt.Errorf("pibas: Search: %w: %v", errs.ErrDecryption, err)
		}
		ids = append(ids, id)
	}
	return Result{IDs: ids}, nil
}

type scheme struct{}

func (scheme) Name() string { return name }

func (scheme) NewConfig(params map[string]any) (sse.Config, error) {
	lambda, ok1 := params["lambda"].(int)
	prfOutputLength, ok2 := params["prf_output_length"].(int)
	identifierSize, ok3 := params["identifier_size"].(int)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("pibas: %w: requires int lambda, prf_output_length, identifier_size", errs.ErrConfig)
	}
	prfName, _ := params["prf"].(string)
	skeName, _ := params["ske"].(string)
	return config.NewPiBasConfig(lambda, prfOutputLength, identifierSize, prfName, skeName)
}

func (scheme) KeyGen(cfg sse.Config, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.PiBasConfig)
	if !ok {
		return nil, fmt.Errorf("pibas: %w: wrong config type", errs.ErrConfig)
	}
	key, err := KeyGen(c, src)
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func (scheme) EDBSetup(cfg sse.Config, keyBytes []byte, db sse.Database, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.PiBasConfig)
	if !ok {
		return nil, fmt.Errorf("pibas: %w: wrong config type", errs.ErrConfig)
	}
	key, err := DeserializeKey(keyBytes)
	if err != nil {
		return nil, err
	}
	edb, err := EDBSetup(c, key, db, src)
	if err != nil {
		return nil, err
	}
	return edb.Serialize(), nil
}

func (scheme) TokenGen(cfg sse.Config, keyBytes []byte, w string) ([]byte, error) {
	c, ok := cfg.(*config.PiBasConfig)
	if !ok {
		return nil, fmt.Errorf("pibas: %w: wrong config type", errs.ErrConfig)
	}
	key, err := DeserializeKey(keyBytes)
	if err != nil {
		return nil, err
	}
	tok, err := TokenGen(c, key, w)
	if err != nil {
		return nil, err
	}
	return tok.Serialize(), nil
}

func (scheme) Search(cfg sse.Config, edbBytes, tokenBytes []byte) (sse.Result, error) {
	c, ok := cfg.(*config.PiBasConfig)
	if !ok {
		return sse.Result{}, fmt.Errorf("pibas: %w: wrong config type", errs.ErrConfig)
	}
	edb, err := DeserializeEDB(edbBytes)
	if err != nil {
		return sse.Result{}, err
	}
	tok, err := DeserializeToken(tokenBytes)
	if err != nil {
		return sse.Result{}, err
	}
	res, err := Search(c, edb, tok)
	if err != nil {
		return sse.Result{}, err
	}
	return sse.Result{IDs: res.IDs}, nil
}

func init() {
	sse.Register(scheme{})
}
