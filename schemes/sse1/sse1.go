// Package sse1 implements SSE1 (Curtmola-Garay-Kamara-Ostrovsky 2006): a
// linked-list-in-array construction with a look-up table pointing at each
// list's head.
package sse1

import (
	"fmt"
	"io"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
	"github.com/jezachen/go-sse/internal/bitset"
	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/layout/randsrc"
	"github.com/jezachen/go-sse/internal/primitives/ske"
	"github.com/jezachen/go-sse/internal/serial"
	"github.com/jezachen/go-sse/key"
)

const name = "SSE1"

var (
	magicKey   = serial.Magic("sse/sse1/key")
	magicEDB   = serial.Magic("sse/sse1/edb")
	magicToken = serial.Magic("sse/sse1/tok")
	magicResul = serial.Magic("sse/sse1/res")
)

// Key is (K1,K2,K3,K4); K4 is sampled but never used, per the construction.
type Key struct {
	K1, K2, K3, K4 []byte
}

// EDB is the node array A (addressed by ψ) plus the look-up table T
// (addressed by π) pointing at each keyword's list head.
type EDB struct {
	A [][]byte
	T map[string][]byte
}

// Token is (γ, η) = (π(K3,w), f(K2,w)).
type Token struct {
	Gamma, Eta []byte
}

// Result is the identifier list in linked-list traversal order.
type Result struct {
	IDs [][]byte
}

func (k Key) Serialize() []byte {
	w := serial.NewWriter(magicKey)
	w.PutBytes(k.K1)
	w.PutBytes(k.K2)
	w.PutBytes(k.K3)
	w.PutBytes(k.K4)
	return w.Bytes()
}

// DeserializeKey parses a Key previously produced by Key.Serialize.
func DeserializeKey(data []byte) (Key, error) {
	r, err := serial.CheckMagic(data, magicKey)
	if err != nil {
		return Key{}, err
	}
	k1, err := r.Bytes()
	if err != nil {
		return Key{}, err
	}
	k2, err := r.Bytes()
	if err != nil {
		return Key{}, err
	}
	k3, err := r.Bytes()
	if err != nil {
		return Key{}, err
	}
	k4, err := r.Bytes()
	if err != nil {
		return Key{}, err
	}
	return Key{K1: k1, K2: k2, K3: k3, K4: k4}, nil
}

func (e EDB) Serialize() []byte {
	w := serial.NewWriter(magicEDB)
	w.PutUint32(uint32(len(e.A)))
	for _, cell := range e.A {
		w.PutBytes(cell)
	}
	keys := make([]string, 0, len(e.T))
	for k := range e.T {
		keys = append(keys, k)
	}
	w.PutStringBytesMap(keys, e.T)
	return w.Bytes()
}

// DeserializeEDB parses an EDB previously produced by EDB.Serialize.
func DeserializeEDB(data []byte) (EDB, error) {
	r, err := serial.CheckMagic(data, magicEDB)
	if err != nil {
		return EDB{}, err
	}
	n, err := r.Uint32()
	if err != nil {
		return EDB{}, err
	}
	a := make([][]byte, n)
	for i := range a {
		cell, err := r.Bytes()
		if err != nil {
			return EDB{}, err
		}
		a[i] = cell
	}
	t, err := r.StringBytesMap()
	if err != nil {
		return EDB{}, err
	}
	return EDB{A: a, T: t}, nil
}

func (t Token) Serialize() []byte {
	w := serial.NewWriter(magicToken)
	w.PutBytes(t.Gamma)
	w.PutBytes(t.Eta)
	return w.Bytes()
}

// DeserializeToken parses a Token previously produced by Token.Serialize.
func DeserializeToken(data []byte) (Token, error) {
	r, err := serial.CheckMagic(data, magicToken)
	if err != nil {
		return Token{}, err
	}
	gamma, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	eta, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	return Token{Gamma: gamma, Eta: eta}, nil
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

// KeyGen samples four independent uniform K-byte keys; K4 is unused.
func KeyGen(cfg *config.SSE1Config, src randsrc.Source) (Key, error) {
	ks, err := key.Generate(src, 4, cfg.K)
	if err != nil {
		return Key{}, fmt.Errorf("sse1: KeyGen: %w", err)
	}
	return Key{K1: ks[0], K2: ks[1], K3: ks[2], K4: ks[3]}, nil
}

func addrBytesLen(cfg *config.SSE1Config) int {
	return (cfg.AddrBits() + 7) / 8
}

func padKeyword(cfg *config.SSE1Config, w string) ([]byte, error) {
	if len(w) > cfg.L {
		return nil, fmt.Errorf("sse1: %w: keyword longer than param_l", errs.ErrSizeOverflow)
	}
	out := make([]byte, cfg.L)
	copy(out, w)
	return out, nil
}

// psi applies prp_ψ to an address-space counter value, yielding its
// permuted address as a fixed addrBytesLen(cfg)-byte big-endian value.
func psi(cfg *config.SSE1Config, k1 []byte, ctr int) ([]byte, error) {
	if ctr < 0 || ctr >= (1<<uint(cfg.AddrBits())) {
		return nil, fmt.Errorf("sse1: %w: database too large for param_s", errs.ErrSizeOverflow)
	}
	in := bitset.New(uint64(ctr), cfg.AddrBits())
	out, err := cfg.PRPPsi().Encrypt(k1, in)
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func addrToInt(cfg *config.SSE1Config, addr []byte) int {
	bs := bitset.FromBytes(addr, cfg.AddrBits())
	return int(bs.Uint64())
}

func isAllZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// pi applies prp_π to a keyword, yielding its L-byte label.
func pi(cfg *config.SSE1Config, k3 []byte, w string) ([]byte, error) {
	padded, err := padKeyword(cfg, w)
	if err != nil {
		return nil, err
	}
	in := bitset.FromBytes(padded, 8*cfg.L)
	out, err := cfg.PRPPi().Encrypt(k3, in)
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func nodePlaintextLen(cfg *config.SSE1Config) int {
	return cfg.IdentifierSize + cfg.K + addrBytesLen(cfg)
}

// EDBSetup writes one encrypted linked list per keyword into A, each node
// chained under the next node's key, and records every list's head pointer
// (masked under f(K2,w)) in T.
func EDBSetup(cfg *config.SSE1Config, key Key, db sse.Database, src randsrc.Source) (EDB, error) {
	arr := make([][]byte, cfg.S)
	occupied := make([]bool, cfg.S)
	t := make(map[string][]byte)
	ctr := 0

	for w, ids := range db {
		n := len(ids)
		if n == 0 {
			continue
		}
		k0, err := randsrc.Bytes(src, cfg.K)
		if err != nil {
			return EDB{}, fmt.Errorf("sse1: EDBSetup: %w", err)
		}

		var firstAddr []byte
		prevKey := k0
		for idx := 1; idx <= n; idx++ {
			addr, err := psi(cfg, key.K1, ctr)
			if err != nil {
				return EDB{}, fmt.Errorf("sse1: EDBSetup: keyword %q: %w", w, err)
			}
			if idx == 1 {
				firstAddr = addr
			}

			var nextKey, nextAddr []byte
			if idx < n {
				nextKey, err = cfg.SKE1().KeyGen(src)
				if err != nil {
					return EDB{}, fmt.Errorf("sse1: EDBSetup: %w", err)
				}
				nextAddr, err = psi(cfg, key.K1, ctr+1)
				if err != nil {
					return EDB{}, fmt.Errorf("sse1: EDBSetup: keyword %q: %w", w, err)
				}
			} else {
				nextKey = make([]byte, cfg.K)
				nextAddr = make([]byte, addrBytesLen(cfg))
			}

			plaintext := append(append(append([]byte{}, ids[idx-1]...), nextKey...), nextAddr...)
			ct, err := cfg.SKE1().Encrypt(prevKey, plaintext, src)
			if err != nil {
				return EDB{}, fmt.Errorf("sse1: EDBSetup: %w", err)
			}

			addrIdx := addrToInt(cfg, addr)
			if occupied[addrIdx] {
				return EDB{}, fmt.Errorf("sse1: %w: address collision in array A", errs.ErrSizeOverflow)
			}
			arr[addrIdx] = ct
			occupied[addrIdx] = true

			prevKey = nextKey
			ctr++
		}

		label, err := pi(cfg, key.K3, w)
		if err != nil {
			return EDB{}, fmt.Errorf("sse1: EDBSetup: %w", err)
		}
		eta, err := cfg.PRF().Sum(key.K2, []byte(w), cfg.K+addrBytesLen(cfg))
		if err != nil {
			return EDB{}, fmt.Errorf("sse1: EDBSetup: %w", err)
		}
		blob := append(append([]byte{}, firstAddr...), k0...)
		t[string(label)] = xorBytes(blob, eta)
	}

	cellLen := ske1CipherLen(cfg)
	for i := range arr {
		if occupied[i] {
			continue
		}
		filler, err := randsrc.Bytes(src, cellLen)
		if err != nil {
			return EDB{}, fmt.Errorf("sse1: EDBSetup: %w", err)
		}
		arr[i] = filler
	}

	entryLen := cfg.K + addrBytesLen(cfg)
	for len(t) < cfg.DictionarySize {
		label, err := randsrc.Bytes(src, cfg.L)
		if err != nil {
			return EDB{}, fmt.Errorf("sse1: EDBSetup: %w", err)
		}
		value, err := randsrc.Bytes(src, entryLen)
		if err != nil {
			return EDB{}, fmt.Errorf("sse1: EDBSetup: %w", err)
		}
		t[string(label)] = value
	}

	return EDB{A: arr, T: t}, nil
}

func ske1CipherLen(cfg *config.SSE1Config) int {
	return ske.CiphertextLen(nodePlaintextLen(cfg))
}

// TokenGen derives the dictionary label and masking value for a keyword.
func TokenGen(cfg *config.SSE1Config, key Key, w string) (Token, error) {
	gamma, err := pi(cfg, key.K3, w)
	if err != nil {
		return Token{}, fmt.Errorf("sse1: TokenGen: %w", err)
	}
	eta, err := cfg.PRF().Sum(key.K2, []byte(w), cfg.K+addrBytesLen(cfg))
	if err != nil {
		return Token{}, fmt.Errorf("sse1: TokenGen: %w", err)
	}
	return Token{Gamma: gamma, Eta: eta}, nil
}

// Search looks up the list head in T and walks the chain in A, decrypting
// one node at a time, until the all-zero next-address sentinel is reached.
func Search(cfg *config.SSE1Config, edb EDB, tok Token) (Result, error) {
	theta, ok := edb.T[string(tok.Gamma)]
	if !ok {
		return Result{}, nil
	}
	if len(theta) != len(tok.Eta) {
		return Result{}, fmt.Errorf("sse1: Search: %w: dictionary entry length mismatch", errs.ErrSerialization)
	}
	blob := xorBytes(theta, tok.Eta)
	addrLen := addrBytesLen(cfg)
	if len(blob) != addrLen+cfg.K {
		return Result{}, fmt.Errorf("sse1: Search: %w: dictionary entry length mismatch", errs.ErrSerialization)
	}
	addr, kcur := blob[:addrLen], blob[addrLen:]

	var ids [][]byte
	plainLen := nodePlaintextLen(cfg)
	for {
		addrIdx := addrToInt(cfg, addr)
		if addrIdx < 0 || addrIdx >= len(edb.A) {
			return Result{}, fmt.Errorf("sse1: Search: %w: address out of range", errs.ErrSerialization)
		}
		pt, err := cfg.SKE1().Decrypt(kcur, edb.A[addrIdx])
		if err != nil {
			return Result{}, fmt.Errorf("sse1: Search: %w: %v", errs.ErrDecryption, err)
		}
		if len(pt) != plainLen {
			return Result{}, fmt.Errorf("sse1: Search: %w: node plaintext length mismatch", errs.ErrDecryption)
		}
		id := pt[:cfg.IdentifierSize]
		nextKey := pt[cfg.IdentifierSize : cfg.IdentifierSize+cfg.K]
		nextAddr := pt[cfg.IdentifierSize+cfg.K:]
		ids = append(ids, append([]byte{}, id...))
		if isAllZero(nextAddr) {
			break
		}
		addr, kcur = nextAddr, nextKey
	}
	return Result{IDs: ids}, nil
}

type scheme struct{}

func (scheme) Name() string { return name }

func (scheme) NewConfig(params map[string]any) (sse.Config, error) {
	k, ok1 := params["k"].(int)
	l, ok2 := params["l"].(int)
	s, ok3 := params["s"].(int)
	dictSize, ok4 := params["dictionary_size"].(int)
	identifierSize, ok5 := params["identifier_size"].(int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, fmt.Errorf("sse1: %w: requires int k, l, s, dictionary_size, identifier_size", errs.ErrConfig)
	}
	prfName, _ := params["prf"].(string)
	prpPiName, _ := params["prp_pi"].(string)
	prpPsiName, _ := params["prp_psi"].(string)
	ske1Name, _ := params["ske1"].(string)
	ske2Name, _ := params["ske2"].(string)
	return config.NewSSE1Config(k, l, s, dictSize, identifierSize, prfName, prpPiName, prpPsiName, ske1Name, ske2Name)
}

// below: the byte-level adapter methods required by sse.Scheme, letting a
// caller that only knows "SSE1" by name drive KeyGen/EDBSetup/TokenGen/
// Search without importing this package's concrete Key/EDB/Token types.

func (scheme) KeyGen(cfg sse.Config, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.SSE1Config)
	if !ok {
		return nil, fmt.Errorf("sse1: %w: wrong config type", errs.ErrConfig)
	}
	key, err := KeyGen(c, src)
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func (scheme) EDBSetup(cfg sse.Config, keyBytes []byte, db sse.Database, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.SSE1Config)
	if !ok {
		return nil, fmt.Errorf("sse1: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.SSE1Config)
	if !ok {
		return nil, fmt.Errorf("sse1: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.SSE1Config)
	if !ok {
		return sse.Result{}, fmt.Errorf("sse1: %w: wrong config type", errs.ErrConfig)
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
