// Package sse2 implements SSE2 (Curtmola-Garay-Kamara-Ostrovsky 2006): a
// direct PRP-addressed table with one cell per (keyword, identifier) pair,
// no encryption layer beyond the permutation itself.
package sse2

import (
	"fmt"
	"io"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
	"github.com/jezachen/go-sse/internal/bitset"
	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/layout/randsrc"
	"github.com/jezachen/go-sse/internal/serial"
	"github.com/jezachen/go-sse/key"
)

const name = "SSE2"

var (
	magicKey   = serial.Magic("sse/sse2/key")
	magicEDB   = serial.Magic("sse/sse2/edb")
	magicToken = serial.Magic("sse/sse2/tok")
	magicResul = serial.Magic("sse/sse2/res")
)

// Key is (K1,K2); K2 is sampled but never used by EDBSetup/Search, mirroring
// SSE1's unused K4.
type Key struct {
	K1, K2 []byte
}

// EDB is the direct PRP-addressed dictionary I: label -> identifier, with
// no further encryption (identifiers at rest are unrecoverable only because
// their pseudorandom label hides which (keyword, position) produced them).
type EDB struct {
	I map[string][]byte
}

// Token is the precomputed sequence [π(K1, w||i)]_{i=1..N}.
type Token struct {
	Labels [][]byte
}

// Result is the ordered list of identifiers recovered up to the first
// missing token position.
type Result struct {
	IDs [][]byte
}

func (k Key) Serialize() []byte {
	w := serial.NewWriter(magicKey)
	w.PutBytes(k.K1)
	w.PutBytes(k.K2)
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
	return Key{K1: k1, K2: k2}, nil
}

func (e EDB) Serialize() []byte {
	w := serial.NewWriter(magicEDB)
	keys := make([]string, 0, len(e.I))
	for k := range e.I {
		keys = append(keys, k)
	}
	w.PutStringBytesMap(keys, e.I)
	return w.Bytes()
}

// DeserializeEDB parses an EDB previously produced by EDB.Serialize.
func DeserializeEDB(data []byte) (EDB, error) {
	r, err := serial.CheckMagic(data, magicEDB)
	if err != nil {
		return EDB{}, err
	}
	i, err := r.StringBytesMap()
	if err != nil {
		return EDB{}, err
	}
	return EDB{I: i}, nil
}

func (t Token) Serialize() []byte {
	w := serial.NewWriter(magicToken)
	w.PutUint32(uint32(len(t.Labels)))
	for _, l := range t.Labels {
		w.PutBytes(l)
	}
	return w.Bytes()
}

// DeserializeToken parses a Token previously produced by Token.Serialize.
func DeserializeToken(data []byte) (Token, error) {
	r, err := serial.CheckMagic(data, magicToken)
	if err != nil {
		return Token{}, err
	}
	n, err := r.Uint32()
	if err != nil {
		return Token{}, err
	}
	labels := make([][]byte, n)
	for i := range labels {
		l, err := r.Bytes()
		if err != nil {
			return Token{}, err
		}
		labels[i] = l
	}
	return Token{Labels: labels}, nil
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

// KeyGen samples two independent uniform K-byte keys; K2 is unused.
func KeyGen(cfg *config.SSE2Config, src randsrc.Source) (Key, error) {
	ks, err := key.Generate(src, 2, cfg.K)
	if err != nil {
		return Key{}, fmt.Errorf("sse2: KeyGen: %w", err)
	}
	return Key{K1: ks[0], K2: ks[1]}, nil
}

func idxBits(cfg *config.SSE2Config) int {
	return cfg.MsgBits() - 8*cfg.L
}

func padKeyword(cfg *config.SSE2Config, w string) ([]byte, error) {
	if len(w) > cfg.L {
		return nil, fmt.Errorf("sse2: %w: keyword longer than param_l", errs.ErrSizeOverflow)
	}
	out := make([]byte, cfg.L)
	copy(out, w)
	return out, nil
}

// pi applies prp_π to (padded keyword, index), where index occupies the
// low-order idxBits(cfg) bits of the message.
func pi(cfg *config.SSE2Config, k1 []byte, wPadded []byte, index int) ([]byte, error) {
	bits := idxBits(cfg)
	if index < 0 || index >= (1<<uint(bits)) {
		return nil, fmt.Errorf("sse2: %w: index does not fit param_n+param_max index space", errs.ErrSizeOverflow)
	}
	wBits := bitset.FromBytes(wPadded, 8*cfg.L)
	idxBitset := bitset.New(uint64(index), bits)
	msg := bitset.Concat(wBits, idxBitset)
	out, err := cfg.PRPPi().Encrypt(k1, msg)
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// EDBSetup writes one direct-addressed cell per (keyword, position), then
// pads every identifier's occurrence count up to Max using dummy entries
// indexed under the all-zero keyword, so no cell's frequency leaks a real
// document's true posting count.
func EDBSetup(cfg *config.SSE2Config, key Key, db sse.Database, src randsrc.Source) (EDB, error) {
	i := make(map[string][]byte)
	count := make(map[string]int)
	var order []string

	for w, ids := range db {
		wPadded, err := padKeyword(cfg, w)
		if err != nil {
			return EDB{}, fmt.Errorf("sse2: EDBSetup: %w", err)
		}
		for j, id := range ids {
			label, err := pi(cfg, key.K1, wPadded, j+1)
			if err != nil {
				return EDB{}, fmt.Errorf("sse2: EDBSetup: keyword %q: %w", w, err)
			}
			i[string(label)] = append([]byte{}, id...)
			idKey := string(id)
			if count[idKey] == 0 {
				order = append(order, idKey)
			}
			count[idKey]++
		}
	}

	zeroW := make([]byte, cfg.L)
	dummyCtr := 1
	for _, idKey := range order {
		for count[idKey] < cfg.Max {
			label, err := pi(cfg, key.K1, zeroW, dummyCtr)
			if err != nil {
				return EDB{}, fmt.Errorf("sse2: EDBSetup: %w", err)
			}
			i[string(label)] = []byte(idKey)
			count[idKey]++
			dummyCtr++
		}
	}

	return EDB{I: i}, nil
}

// TokenGen derives the full token list [π(K1,w||i)]_{i=1..N}; Search stops
// at the first position absent from I, which is correct only because
// EDBSetup writes a contiguous prefix of positions 1..|DB(w)| for each
// real keyword.
func TokenGen(cfg *config.SSE2Config, key Key, w string) (Token, error) {
	wPadded, err := padKeyword(cfg, w)
	if err != nil {
		return Token{}, fmt.Errorf("sse2: TokenGen: %w", err)
	}
	labels := make([][]byte, cfg.N)
	for idx := 1; idx <= cfg.N; idx++ {
		label, err := pi(cfg, key.K1, wPadded, idx)
		if err != nil {
			return Token{}, fmt.Errorf("sse2: TokenGen: %w", err)
		}
		labels[idx-1] = label
	}
	return Token{Labels: labels}, nil
}

// Search walks the token in order and stops at the first missing entry.
func Search(cfg *config.SSE2Config, edb EDB, tok Token) (Result, error) {
	var ids [][]byte
	for _, label := range tok.Labels {
		id, ok := edb.I[string(label)]
		if !ok {
			break
		}
		ids = append(ids, id)
	}
	return Result{IDs: ids}, nil
}

type scheme struct{}

func (scheme) Name() string { return name }

func (scheme) NewConfig(params map[string]any) (sse.Config, error) {
	k, ok1 := params["k"].(int)
	l, ok2 := params["l"].(int)
	n, ok3 := params["n"].(int)
	maxFileSize, ok4 := params["max_file_size"].(int)
	identifierSize, ok5 := params["identifier_size"].(int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, fmt.Errorf("sse2: %w: requires int k, l, n, max_file_size, identifier_size", errs.ErrConfig)
	}
	prpPiName, _ := params["prp_pi"].(string)
	skeName, _ := params["ske"].(string)
	return config.NewSSE2Config(k, l, n, maxFileSize, identifierSize, prpPiName, skeName)
}

func (scheme) KeyGen(cfg sse.Config, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.SSE2Config)
	if !ok {
		return nil, fmt.Errorf("sse2: %w: wrong config type", errs.ErrConfig)
	}
	key, err := KeyGen(c, src)
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func (scheme) EDBSetup(cfg sse.Config, keyBytes []byte, db sse.Database, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.SSE2Config)
	if !ok {
		return nil, fmt.Errorf("sse2: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.SSE2Config)
	if !ok {
		return nil, fmt.Errorf("sse2: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.SSE2Config)
	if !ok {
		return sse.Result{}, fmt.Errorf("sse2: %w: wrong config type", errs.ErrConfig)
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
