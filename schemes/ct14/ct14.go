// Package ct14 implements CT14-Pi (Cash-Tessaro 2014): a size-class
// hash-table construction. Each keyword's posting list is split into
// power-of-two chunks, and each chunk is stored as one entry of the hash
// table sized for its chunk's level.
package ct14

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/layout/dbstats"
	"github.com/jezachen/go-sse/internal/layout/randsrc"
	"github.com/jezachen/go-sse/internal/primitives/ske"
	"github.com/jezachen/go-sse/internal/serial"
	"github.com/jezachen/go-sse/key"
)

const name = "CT14-Pi"

var (
	magicKey   = serial.Magic("sse/ct14/key")
	magicEDB   = serial.Magic("sse/ct14/edb")
	magicToken = serial.Magic("sse/ct14/tok")
	magicResul = serial.Magic("sse/ct14/res")
)

// Key is the single master key CT14-Pi derives per-keyword sub-keys from.
type Key struct {
	K []byte
}

// EDB is the sequence of per-level hash tables HT_0..HT_t, each mapping
// a label to one chunk's concatenated ciphertexts.
type EDB struct {
	Levels []map[string][]byte
}

// Token is the pair of per-keyword derived keys needed to probe every level.
type Token struct {
	K0, K1 []byte
}

// Result is the list of identifiers recovered by Search, in level-descent
// order (largest chunks first).
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
	w.PutUint32(uint32(len(e.Levels)))
	for _, lvl := range e.Levels {
		keys := make([]string, 0, len(lvl))
		for k := range lvl {
			keys = append(keys, k)
		}
		w.PutStringBytesMap(keys, lvl)
	}
	return w.Bytes()
}

// DeserializeEDB parses an EDB previously produced by EDB.Serialize.
func DeserializeEDB(data []byte) (EDB, error) {
	r, err := serial.CheckMagic(data, magicEDB)
	if err != nil {
		return EDB{}, err
	}
	t, err := r.Uint32()
	if err != nil {
		return EDB{}, err
	}
	levels := make([]map[string][]byte, t)
	for i := range levels {
		m, err := r.StringBytesMap()
		if err != nil {
			return EDB{}, err
		}
		levels[i] = m
	}
	return EDB{Levels: levels}, nil
}

func (t Token) Serialize() []byte {
	w := serial.NewWriter(magicToken)
	w.PutBytes(t.K0)
	w.PutBytes(t.K1)
	return w.Bytes()
}

// DeserializeToken parses a Token previously produced by Token.Serialize.
func DeserializeToken(data []byte) (Token, error) {
	r, err := serial.CheckMagic(data, magicToken)
	if err != nil {
		return Token{}, err
	}
	k0, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	k1, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	return Token{K0: k0, K1: k1}, nil
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

// KeyGen samples a single uniform K-byte master key.
func KeyGen(cfg *config.CT14Config, src randsrc.Source) (Key, error) {
	ks, err := key.Generate(src, 1, cfg.K)
	if err != nil {
		return Key{}, fmt.Errorf("ct14: KeyGen: %w", err)
	}
	return Key{K: ks[0]}, nil
}

func deriveWordKeys(cfg *config.CT14Config, masterKey, w []byte) (k0, k1 []byte, err error) {
	out, err := cfg.PRF().Sum(masterKey, w, 2*cfg.K)
	if err != nil {
		return nil, nil, err
	}
	return out[:cfg.K], out[cfg.K:], nil
}

func chunkLabel(cfg *config.CT14Config, k0 []byte, level int) ([]byte, error) {
	return cfg.PRFPrime().Sum(k0, levelBytes(level), cfg.Kp)
}

func levelBytes(level int) []byte {
	var b [4]byte
	v := uint32(level)
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
	return b[:]
}

func cipherLen(cfg *config.CT14Config) int {
	return ske.CiphertextLen(cfg.IdentifierSize)
}

// chunksOf returns the greedy largest-chunk-first power-of-two
// decomposition of n items as the levels of n's set bits, level
// descending: each level j stands for one chunk of 2^j items.
func chunksOf(n int) []int {
	var levels []int
	for j := bits.Len(uint(n)) - 1; j >= 0; j-- {
		if n&(1<<uint(j)) != 0 {
			levels = append(levels, j)
		}
	}
	return levels
}

// EDBSetup pads db to a power-of-two total posting count, chunks each
// keyword's postings by descending power of two, and builds one hash
// table per level.
func EDBSetup(cfg *config.CT14Config, key Key, db sse.Database, src randsrc.Source) (EDB, error) {
	total := 0
	for _, ids := range db {
		total += len(ids)
	}
	t := 0
	if total > 0 {
		t = bits.Len(uint(total - 1))
	}
	if t == 0 {
		t = 1
	}
	target := 1 << t

	// Deep-copy before padding so the caller's database is never mutated.
	padded := sse.Database(dbstats.Clone(dbstats.Database(db)))
	dummyCount := 0
	for total < target {
		dummyID, err := randsrc.Bytes(src, cfg.IdentifierSize)
		if err != nil {
			return EDB{}, fmt.Errorf("ct14: EDBSetup: %w", err)
		}
		dummyWord, err := randsrc.Bytes(src, cfg.L)
		if err != nil {
			return EDB{}, fmt.Errorf("ct14: EDBSetup: %w", err)
		}
		padded[fmt.Sprintf("\x00dummy-ct14-%x-%d", dummyWord, dummyCount)] = [][]byte{dummyID}
		dummyCount++
		total++
	}

	// Size classes run from 0 to t inclusive: a single keyword may hold the
	// entire database, whose greedy decomposition starts with one 2^t chunk.
	levels := make([]map[string][]byte, t+1)
	for i := range levels {
		levels[i] = make(map[string][]byte)
	}

	for w, ids := range padded {
		k0, k1, err := deriveWordKeys(cfg, key.K, []byte(w))
		if err != nil {
			return EDB{}, fmt.Errorf("ct14: EDBSetup: %w", err)
		}
		pos := 0
		for _, j := range chunksOf(len(ids)) {
			size := 1 << uint(j)
			chunk := ids[pos : pos+size]
			pos += size
			var entry []byte
			for _, id := range chunk {
				ct, err := cfg.SKE().Encrypt(k1, id, src)
				if err != nil {
					return EDB{}, fmt.Errorf("ct14: EDBSetup: %w", err)
				}
				entry = append(entry, ct...)
			}
			label, err := chunkLabel(cfg, k0, j)
			if err != nil {
				return EDB{}, fmt.Errorf("ct14: EDBSetup: %w", err)
			}
			levels[j][string(label)] = entry
		}
	}

	for i, lvl := range levels {
		want := 1 << uint(t-i)
		for len(lvl) < want {
			label, err := randsrc.Bytes(src, cfg.Kp)
			if err != nil {
				return EDB{}, fmt.Errorf("ct14: EDBSetup: %w", err)
			}
			entry, err := randsrc.Bytes(src, (1<<uint(i))*cipherLen(cfg))
			if err != nil {
				return EDB{}, fmt.Errorf("ct14: EDBSetup: %w", err)
			}
			lvl[string(label)] = entry
		}
	}

	return EDB{Levels: levels}, nil
}

// TokenGen derives the per-keyword label and payload keys.
func TokenGen(cfg *config.CT14Config, key Key, w string) (Token, error) {
	k0, k1, err := deriveWordKeys(cfg, key.K, []byte(w))
	if err != nil {
		return Token{}, fmt.Errorf("ct14: TokenGen: %w", err)
	}
	return Token{K0: k0, K1: k1}, nil
}

// Search probes every level from largest chunk size down to smallest,
// decrypting and appending any present chunk's identifiers.
func Search(cfg *config.CT14Config, edb EDB, tok Token) (Result, error) {
	var ids [][]byte
	for i := len(edb.Levels) - 1; i >= 0; i-- {
		label, err := chunkLabel(cfg, tok.K0, i)
		if err != nil {
			return Result{}, fmt.Errorf("ct14: Search: %w", err)
		}
		entry, ok := edb.Levels[i][string(label)]
		if !ok {
			continue
		}
		count := 1 << uint(i)
		cl := cipherLen(cfg)
		if len(entry) != count*cl {
			return Result{}, fmt.Errorf("ct14: Search: %w: level entry has unexpected length", errs.ErrSerialization)
		}
		for c := 0; c < count; c++ {
			ct := entry[c*cl : (c+1)*cl]
			id, err := cfg.SKE().Decrypt(tok.K1, ct)
			if err != nil {
				return Result{}, fmt.Errorf("ct14: Search: %w: %v", errs.ErrDecryption, err)
			}
			ids = append(ids, id)
		}
	}
	return Result{IDs: ids}, nil
}

type scheme struct{}

func (scheme) Name() string { return name }

func (scheme) NewConfig(params map[string]any) (sse.Config, error) {
	k, ok1 := params["k"].(int)
	kp, ok2 := params["k_prime"].(int)
	l, ok3 := params["l"].(int)
	identifierSize, ok4 := params["identifier_size"].(int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("ct14: %w: requires int k, k_prime, l, identifier_size", errs.ErrConfig)
	}
	prfName, _ := params["prf"].(string)
	prfPrimeName, _ := params["prf_prime"].(string)
	skeName, _ := params["ske"].(string)
	return config.NewCT14Config(k, kp, l, identifierSize, prfName, prfPrimeName, skeName)
}

func (scheme) KeyGen(cfg sse.Config, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.CT14Config)
	if !ok {
		return nil, fmt.Errorf("ct14: %w: wrong config type", errs.ErrConfig)
	}
	key, err := KeyGen(c, src)
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func (scheme) EDBSetup(cfg sse.Config, keyBytes []byte, db sse.Database, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.CT14Config)
	if !ok {
		return nil, fmt.Errorf("ct14: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.CT14Config)
	if !ok {
		return nil, fmt.Errorf("ct14: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.CT14Config)
	if !ok {
		return sse.Result{}, fmt.Errorf("ct14: %w: wrong config type", errs.ErrConfig)
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
