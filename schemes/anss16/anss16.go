// Package anss16 implements ANSS16-Scheme3: CT14-Pi's size-class hash
// table split into two dictionaries, a payload dictionary keyed by
// posting-list length class and a size dictionary recording each
// keyword's true posting count.
package anss16

import (
	"encoding/binary"
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

const name = "ANSS16-S3"

var (
	magicKey   = serial.Magic("sse/anss16/key")
	magicEDB   = serial.Magic("sse/anss16/edb")
	magicToken = serial.Magic("sse/anss16/tok")
	magicResul = serial.Magic("sse/anss16/res")
)

// Key is the single master key ANSS16-S3 derives per-keyword sub-keys from.
type Key struct {
	K []byte
}

// EDB is the payload dictionary T_0..T_t (one per length class) plus the
// size dictionary S.
type EDB struct {
	T []map[string][]byte
	S map[string][]byte
}

// Token is the four per-keyword values a single PRF call produces.
type Token struct {
	LW, KW, LPW, KPW []byte
}

// Result is the list of identifiers recovered by Search.
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
	w.PutUint32(uint32(len(e.T)))
	for _, lvl := range e.T {
		keys := make([]string, 0, len(lvl))
		for k := range lvl {
			keys = append(keys, k)
		}
		w.PutStringBytesMap(keys, lvl)
	}
	sKeys := make([]string, 0, len(e.S))
	for k := range e.S {
		sKeys = append(sKeys, k)
	}
	w.PutStringBytesMap(sKeys, e.S)
	return w.Bytes()
}

// DeserializeEDB parses an EDB previously produced by EDB.Serialize.
func DeserializeEDB(data []byte) (EDB, error) {
	r, err := serial.CheckMagic(data, magicEDB)
	if err != nil {
		return EDB{}, err
	}
	tCount, err := r.Uint32()
	if err != nil {
		return EDB{}, err
	}
	levels := make([]map[string][]byte, tCount)
	for i := range levels {
		m, err := r.StringBytesMap()
		if err != nil {
			return EDB{}, err
		}
		levels[i] = m
	}
	s, err := r.StringBytesMap()
	if err != nil {
		return EDB{}, err
	}
	return EDB{T: levels, S: s}, nil
}

func (t Token) Serialize() []byte {
	w := serial.NewWriter(magicToken)
	w.PutBytes(t.LW)
	w.PutBytes(t.KW)
	w.PutBytes(t.LPW)
	w.PutBytes(t.KPW)
	return w.Bytes()
}

// DeserializeToken parses a Token previously produced by Token.Serialize.
func DeserializeToken(data []byte) (Token, error) {
	r, err := serial.CheckMagic(data, magicToken)
	if err != nil {
		return Token{}, err
	}
	lw, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	kw, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	lpw, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	kpw, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	return Token{LW: lw, KW: kw, LPW: lpw, KPW: kpw}, nil
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
func KeyGen(cfg *config.ANSS16Config, src randsrc.Source) (Key, error) {
	ks, err := key.Generate(src, 1, cfg.Lambda)
	if err != nil {
		return Key{}, fmt.Errorf("anss16: KeyGen: %w", err)
	}
	return Key{K: ks[0]}, nil
}

// derivePerWord makes the single PRF call that produces (l_w, K_w, l'_w, K'_w).
func derivePerWord(cfg *config.ANSS16Config, masterKey, w []byte) (Token, error) {
	out, err := cfg.PRF().Sum(masterKey, w, cfg.OutputLen())
	if err != nil {
		return Token{}, err
	}
	lw := out[:cfg.L]
	kw := out[cfg.L : cfg.L+cfg.K]
	lpw := out[cfg.L+cfg.K : cfg.L+cfg.K+cfg.Lp]
	kpw := out[cfg.L+cfg.K+cfg.Lp : cfg.L+cfg.K+cfg.Lp+cfg.Kp]
	return Token{LW: lw, KW: kw, LPW: lpw, KPW: kpw}, nil
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func sizeCiphertextLen() int {
	return ske.CiphertextLen(4)
}

func idCiphertextLen(cfg *config.ANSS16Config) int {
	return ske.CiphertextLen(cfg.IdentifierSize)
}

// EDBSetup pads db's total posting count to N=2^t, pads every keyword's own
// posting list to a power of two, and builds the payload and size
// dictionaries.
func EDBSetup(cfg *config.ANSS16Config, key Key, db sse.Database, src randsrc.Source) (EDB, error) {
	total := 0
	for _, ids := range db {
		total += len(ids)
	}
	t := ceilLog2(total)
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
			return EDB{}, fmt.Errorf("anss16: EDBSetup: %w", err)
		}
		padded[fmt.Sprintf("\x00dummy-anss16-%d", dummyCount)] = [][]byte{dummyID}
		dummyCount++
		total++
	}

	tLevels := make([]map[string][]byte, t+1)
	for i := range tLevels {
		tLevels[i] = make(map[string][]byte)
	}
	s := make(map[string][]byte)

	for w, ids := range padded {
		n := len(ids)
		tok, err := derivePerWord(cfg, key.K, []byte(w))
		if err != nil {
			return EDB{}, fmt.Errorf("anss16: EDBSetup: %w", err)
		}
		p := ceilLog2(n)
		if p > t {
			return EDB{}, fmt.Errorf("anss16: EDBSetup: %w: keyword %q posting count exceeds N", errs.ErrSizeOverflow, w)
		}

		wordIDs := make([][]byte, 1<<uint(p))
		copy(wordIDs, ids)
		for i := n; i < len(wordIDs); i++ {
			dummy, err := randsrc.Bytes(src, cfg.IdentifierSize)
			if err != nil {
				return EDB{}, fmt.Errorf("anss16: EDBSetup: %w", err)
			}
			wordIDs[i] = dummy
		}

		var entry []byte
		for _, id := range wordIDs {
			ct, err := cfg.SKE().Encrypt(tok.KW, id, src)
			if err != nil {
				return EDB{}, fmt.Errorf("anss16: EDBSetup: %w", err)
			}
			entry = append(entry, ct...)
		}
		tLevels[p][string(tok.LW)] = entry

		var nBytes [4]byte
		binary.BigEndian.PutUint32(nBytes[:], uint32(n))
		sizeCT, err := cfg.SKESize().Encrypt(tok.KPW, nBytes[:], src)
		if err != nil {
			return EDB{}, fmt.Errorf("anss16: EDBSetup: %w", err)
		}
		s[string(tok.LPW)] = sizeCT
	}

	for i, lvl := range tLevels {
		want := 1 << uint(t-i)
		for len(lvl) < want {
			label, err := randsrc.Bytes(src, cfg.L)
			if err != nil {
				return EDB{}, fmt.Errorf("anss16: EDBSetup: %w", err)
			}
			payload, err := randsrc.Bytes(src, (1<<uint(i))*idCiphertextLen(cfg))
			if err != nil {
				return EDB{}, fmt.Errorf("anss16: EDBSetup: %w", err)
			}
			lvl[string(label)] = payload
		}
	}
	for len(s) < target {
		label, err := randsrc.Bytes(src, cfg.Lp)
		if err != nil {
			return EDB{}, fmt.Errorf("anss16: EDBSetup: %w", err)
		}
		payload, err := randsrc.Bytes(src, sizeCiphertextLen())
		if err != nil {
			return EDB{}, fmt.Errorf("anss16: EDBSetup: %w", err)
		}
		s[string(label)] = payload
	}

	return EDB{T: tLevels, S: s}, nil
}

// TokenGen makes the single PRF call producing the four per-keyword values.
func TokenGen(cfg *config.ANSS16Config, key Key, w string) (Token, error) {
	tok, err := derivePerWord(cfg, key.K, []byte(w))
	if err != nil {
		return Token{}, fmt.Errorf("anss16: TokenGen: %w", err)
	}
	return tok, nil
}

// Search recovers the keyword's true posting count from the size
// dictionary, then fetches and decrypts its payload entry at that count's
// length class.
func Search(cfg *config.ANSS16Config, edb EDB, tok Token) (Result, error) {
	sizeCT, ok := edb.S[string(tok.LPW)]
	if !ok {
		return Result{}, nil
	}
	nBytes, err := cfg.SKESize().Decrypt(tok.KPW, sizeCT)
	if err != nil {
		return Result{}, fmt.Errorf("anss16: Search: %w: %v", errs.ErrDecryption, err)
	}
	if len(nBytes) != 4 {
		return Result{}, fmt.Errorf("anss16: Search: %w: malformed size payload", errs.ErrSerialization)
	}
	n := int(binary.BigEndian.Uint32(nBytes))
	p := ceilLog2(n)
	if p >= len(edb.T) {
		return Result{}, nil
	}
	entry, ok := edb.T[p][string(tok.LW)]
	if !ok {
		return Result{}, nil
	}
	count := 1 << uint(p)
	cl := idCiphertextLen(cfg)
	if len(entry) != count*cl {
		return Result{}, fmt.Errorf("anss16: Search: %w: payload entry has unexpected length", errs.ErrSerialization)
	}
	var ids [][]byte
	for c := 0; c < n; c++ {
		ct := entry[c*cl : (c+1)*cl]
		id, err := cfg.SKE().Decrypt(tok.KW, ct)
		if err != nil {
			return Result{}, fmt.Errorf("anss16: Search: %w: %v", errs.ErrDecryption, err)
		}
		ids = append(ids, id)
	}
	return Result{IDs: ids}, nil
}

type scheme struct{}

func (scheme) Name() string { return name }

func (scheme) NewConfig(params map[string]any) (sse.Config, error) {
	lambda, ok1 := params["lambda"].(int)
	k, ok2 := params["k"].(int)
	kp, ok3 := params["k_prime"].(int)
	l, ok4 := params["l"].(int)
	lp, ok5 := params["l_prime"].(int)
	identifierSize, ok6 := params["identifier_size"].(int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, fmt.Errorf("anss16: %w: requires int lambda, k, k_prime, l, l_prime, identifier_size", errs.ErrConfig)
	}
	prfName, _ := params["prf"].(string)
	skeName, _ := params["ske"].(string)
	return config.NewANSS16Config(lambda, k, kp, l, lp, identifierSize, prfName, skeName)
}

func (scheme) KeyGen(cfg sse.Config, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.ANSS16Config)
	if !ok {
		return nil, fmt.Errorf("anss16: %w: wrong config type", errs.ErrConfig)
	}
	key, err := KeyGen(c, src)
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func (scheme) EDBSetup(cfg sse.Config, keyBytes []byte, db sse.Database, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.ANSS16Config)
	if !ok {
		return nil, fmt.Errorf("anss16: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.ANSS16Config)
	if !ok {
		return nil, fmt.Errorf("anss16: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.ANSS16Config)
	if !ok {
		return sse.Result{}, fmt.Errorf("anss16: %w: wrong config type", errs.ErrConfig)
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
