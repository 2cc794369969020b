// Package dp17 implements DP17-Pi (Demertzis-Papamanthou 2017): a
// tunable-locality construction that buckets postings across a handful of
// size classes, trading locality for a configurable storage overhead.
package dp17

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/layout/randsrc"
	"github.com/jezachen/go-sse/internal/primitives/ske"
	"github.com/jezachen/go-sse/internal/serial"
	"github.com/jezachen/go-sse/key"
)

const name = "DP17-Pi"

var (
	magicKey   = serial.Magic("sse/dp17/key")
	magicEDB   = serial.Magic("sse/dp17/edb")
	magicToken = serial.Magic("sse/dp17/tok")
	magicResul = serial.Magic("sse/dp17/res")
)

// Key is the triple of master keys DP17-Pi derives per-keyword tag,
// masking, and bucket-entry keys from.
type Key struct {
	K1, K2, K3 []byte
}

// EDB is the flat hash table HT (label -> masked level/bucket pair) plus
// the per-level bucket arrays A.
type EDB struct {
	HT map[string][]byte
	A  map[int][][]byte
}

// Token is the three per-keyword values derived from Key.
type Token struct {
	Tag, VTag, ETag []byte
}

// Result is the set of identifiers recovered by Search; DP17-Pi makes no
// ordering guarantee.
type Result struct {
	IDs [][]byte
}

func (k Key) Serialize() []byte {
	w := serial.NewWriter(magicKey)
	w.PutBytes(k.K1)
	w.PutBytes(k.K2)
	w.PutBytes(k.K3)
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
	return Key{K1: k1, K2: k2, K3: k3}, nil
}

func (e EDB) Serialize() []byte {
	w := serial.NewWriter(magicEDB)
	htKeys := make([]string, 0, len(e.HT))
	for k := range e.HT {
		htKeys = append(htKeys, k)
	}
	w.PutStringBytesMap(htKeys, e.HT)

	w.PutUint32(uint32(len(e.A)))
	for level, buckets := range e.A {
		w.PutUint32(uint32(int32(level)))
		w.PutUint32(uint32(len(buckets)))
		for _, b := range buckets {
			w.PutBytes(b)
		}
	}
	return w.Bytes()
}

// DeserializeEDB parses an EDB previously produced by EDB.Serialize.
func DeserializeEDB(data []byte) (EDB, error) {
	r, err := serial.CheckMagic(data, magicEDB)
	if err != nil {
		return EDB{}, err
	}
	ht, err := r.StringBytesMap()
	if err != nil {
		return EDB{}, err
	}
	nLevels, err := r.Uint32()
	if err != nil {
		return EDB{}, err
	}
	a := make(map[int][][]byte, nLevels)
	for i := uint32(0); i < nLevels; i++ {
		levelRaw, err := r.Uint32()
		if err != nil {
			return EDB{}, err
		}
		level := int(int32(levelRaw))
		nBuckets, err := r.Uint32()
		if err != nil {
			return EDB{}, err
		}
		buckets := make([][]byte, nBuckets)
		for b := range buckets {
			bb, err := r.Bytes()
			if err != nil {
				return EDB{}, err
			}
			buckets[b] = bb
		}
		a[level] = buckets
	}
	return EDB{HT: ht, A: a}, nil
}

func (t Token) Serialize() []byte {
	w := serial.NewWriter(magicToken)
	w.PutBytes(t.Tag)
	w.PutBytes(t.VTag)
	w.PutBytes(t.ETag)
	return w.Bytes()
}

// DeserializeToken parses a Token previously produced by Token.Serialize.
func DeserializeToken(data []byte) (Token, error) {
	r, err := serial.CheckMagic(data, magicToken)
	if err != nil {
		return Token{}, err
	}
	tag, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	vtag, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	etag, err := r.Bytes()
	if err != nil {
		return Token{}, err
	}
	return Token{Tag: tag, VTag: vtag, ETag: etag}, nil
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

// KeyGen samples three independent uniform λ-byte master keys.
func KeyGen(cfg *config.DP17Config, src randsrc.Source) (Key, error) {
	ks, err := key.Generate(src, 3, cfg.Lambda)
	if err != nil {
		return Key{}, fmt.Errorf("dp17: KeyGen: %w", err)
	}
	return Key{K1: ks[0], K2: ks[1], K3: ks[2]}, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func levelSchedule(cfg *config.DP17Config, ell int) []int {
	sCount := int(math.Ceil(cfg.Ratio * float64(ell)))
	if sCount < 1 {
		sCount = 1
	}
	p := ceilDiv(ell, sCount)
	if p < 1 {
		p = 1
	}
	seen := map[int]bool{}
	var levels []int
	for i := 0; i < sCount; i++ {
		lvl := ell - i*p
		if lvl < 0 {
			lvl = 0
		}
		if !seen[lvl] {
			seen[lvl] = true
			levels = append(levels, lvl)
		}
	}
	if cfg.L > 1 && !seen[0] {
		levels = append(levels, 0)
	}
	return levels
}

func bucketCount(n, level int) int {
	cap := 1 << uint(level+1)
	nb := ceilDiv(2*n+cap, cap)
	if nb < 1 {
		nb = 1
	}
	return nb
}

func chooseLevel(levels []int, locality, n int) int {
	sorted := append([]int(nil), levels...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	for _, lvl := range sorted {
		if locality*(1<<uint(lvl)) >= n {
			return lvl
		}
	}
	return sorted[len(sorted)-1]
}

func randUintn(n uint64, src randsrc.Source) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	var buf [8]byte
	max := ^uint64(0) - (^uint64(0) % n)
	for {
		if _, err := src.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("dp17: randomness draw failed: %w", err)
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < max {
			return v % n, nil
		}
	}
}

func chooseBucket(remaining []int, need int, src randsrc.Source) (int, error) {
	var candidates []int
	for i, r := range remaining {
		if r >= need {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("dp17: %w: no bucket has enough remaining capacity", errs.ErrSizeOverflow)
	}
	j, err := randUintn(uint64(len(candidates)), src)
	if err != nil {
		return 0, err
	}
	return candidates[j], nil
}

func countBytes(c int) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(c))
	return b[:]
}

func encodeIndex(v, width int) []byte {
	b := make([]byte, width)
	vv := uint64(v)
	for i := width - 1; i >= 0 && vv > 0; i-- {
		b[i] = byte(vv)
		vv >>= 8
	}
	return b
}

func decodeIndex(b []byte) int {
	var v uint64
	for _, bb := range b {
		v = v<<8 | uint64(bb)
	}
	return int(v)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

type rosterEntry struct {
	word string
	id   []byte
}

func bucketCipherLen(cfg *config.DP17Config) int {
	return ske.CiphertextLen(cfg.IdentifierSize + cfg.Lambda)
}

// EDBSetup buckets each keyword's postings into size-class chunks and
// records their location in a flat, padded hash table.
func EDBSetup(cfg *config.DP17Config, key Key, db sse.Database, src randsrc.Source) (EDB, error) {
	total := 0
	for _, ids := range db {
		total += len(ids)
	}
	ell := ceilLog2(total)
	levels := levelSchedule(cfg, ell)

	roster := make(map[int][][]rosterEntry, len(levels))
	remaining := make(map[int][]int, len(levels))
	for _, lvl := range levels {
		nb := bucketCount(total, lvl)
		roster[lvl] = make([][]rosterEntry, nb)
		remaining[lvl] = make([]int, nb)
		for i := range remaining[lvl] {
			remaining[lvl][i] = 1 << uint(lvl+1)
		}
	}

	ht := make(map[string][]byte)
	digestLen := cfg.Hash().OutputLen()
	half := digestLen / 2

	for w, ids := range db {
		n := len(ids)
		lvl := chooseLevel(levels, cfg.L, n)
		chunkSize := 1 << uint(lvl)

		tag, err := cfg.PRF().Sum(key.K1, []byte(w), cfg.Lambda)
		if err != nil {
			return EDB{}, fmt.Errorf("dp17: EDBSetup: %w", err)
		}
		vtag, err := cfg.PRF().Sum(key.K2, []byte(w), cfg.Lambda)
		if err != nil {
			return EDB{}, fmt.Errorf("dp17: EDBSetup: %w", err)
		}

		pos, count := 0, 1
		for pos < n {
			end := pos + chunkSize
			if end > n {
				end = n
			}
			chunk := ids[pos:end]

			x, err := chooseBucket(remaining[lvl], len(chunk), src)
			if err != nil {
				return EDB{}, fmt.Errorf("dp17: EDBSetup: keyword %q: %w", w, err)
			}
			for _, id := range chunk {
				roster[lvl][x] = append(roster[lvl][x], rosterEntry{word: w, id: append([]byte{}, id...)})
			}
			remaining[lvl][x] -= len(chunk)

			cb := countBytes(count)
			label := cfg.Hash().Sum(append(append([]byte{}, tag...), cb...))
			mask := cfg.Hash().Sum(append(append([]byte{}, vtag...), cb...))
			plain := make([]byte, digestLen)
			copy(plain[half-len(encodeIndex(lvl, half)):half], encodeIndex(lvl, half))
			copy(plain[digestLen-len(encodeIndex(x, half)):], encodeIndex(x, half))
			ht[string(label)] = xorBytes(plain, mask)

			pos = end
			count++
		}
	}

	for len(ht) < total {
		label, err := randsrc.Bytes(src, digestLen)
		if err != nil {
			return EDB{}, fmt.Errorf("dp17: EDBSetup: %w", err)
		}
		value, err := randsrc.Bytes(src, digestLen)
		if err != nil {
			return EDB{}, fmt.Errorf("dp17: EDBSetup: %w", err)
		}
		ht[string(label)] = value
	}

	cl := bucketCipherLen(cfg)
	a := make(map[int][][]byte, len(levels))
	for _, lvl := range levels {
		buckets := make([][]byte, len(roster[lvl]))
		for bIdx, entries := range roster[lvl] {
			cap := 1 << uint(lvl+1)
			cts := make([][]byte, cap)
			for i, e := range entries {
				etag, err := cfg.PRF().Sum(key.K3, []byte(e.word), cfg.Lambda)
				if err != nil {
					return EDB{}, fmt.Errorf("dp17: EDBSetup: %w", err)
				}
				plaintext := append(append([]byte{}, e.id...), make([]byte, cfg.Lambda)...)
				ct, err := cfg.Rnd().Encrypt(etag, plaintext, src)
				if err != nil {
					return EDB{}, fmt.Errorf("dp17: EDBSetup: %w", err)
				}
				cts[i] = ct
			}
			for i := len(entries); i < cap; i++ {
				sentinel, err := randsrc.Bytes(src, cl)
				if err != nil {
					return EDB{}, fmt.Errorf("dp17: EDBSetup: %w", err)
				}
				cts[i] = sentinel
			}
			for i := len(cts) - 1; i > 0; i-- {
				j, err := randUintn(uint64(i+1), src)
				if err != nil {
					return EDB{}, fmt.Errorf("dp17: EDBSetup: %w", err)
				}
				cts[i], cts[j] = cts[j], cts[i]
			}
			var buf []byte
			for _, c := range cts {
				buf = append(buf, c...)
			}
			buckets[bIdx] = buf
		}
		a[lvl] = buckets
	}

	return EDB{HT: ht, A: a}, nil
}

// TokenGen derives the tag, masking and entry keys for a keyword.
func TokenGen(cfg *config.DP17Config, key Key, w string) (Token, error) {
	tag, err := cfg.PRF().Sum(key.K1, []byte(w), cfg.Lambda)
	if err != nil {
		return Token{}, fmt.Errorf("dp17: TokenGen: %w", err)
	}
	vtag, err := cfg.PRF().Sum(key.K2, []byte(w), cfg.Lambda)
	if err != nil {
		return Token{}, fmt.Errorf("dp17: TokenGen: %w", err)
	}
	etag, err := cfg.PRF().Sum(key.K3, []byte(w), cfg.Lambda)
	if err != nil {
		return Token{}, fmt.Errorf("dp17: TokenGen: %w", err)
	}
	return Token{Tag: tag, VTag: vtag, ETag: etag}, nil
}

// Search probes up to L count positions, recovering each chunk's bucket
// location and decrypting every entry in it, keeping only those whose
// trailing λ bytes are all zero.
func Search(cfg *config.DP17Config, edb EDB, tok Token) (Result, error) {
	digestLen := cfg.Hash().OutputLen()
	half := digestLen / 2
	cl := bucketCipherLen(cfg)

	seen := make(map[string][]byte)
	for count := 1; count <= cfg.L; count++ {
		cb := countBytes(count)
		label := cfg.Hash().Sum(append(append([]byte{}, tok.Tag...), cb...))
		e, ok := edb.HT[string(label)]
		if !ok {
			continue
		}
		mask := cfg.Hash().Sum(append(append([]byte{}, tok.VTag...), cb...))
		if len(e) != len(mask) {
			continue
		}
		plain := xorBytes(e, mask)
		lvl := decodeIndex(plain[:half])
		x := decodeIndex(plain[half:])

		buckets, ok := edb.A[lvl]
		if !ok || x < 0 || x >= len(buckets) {
			continue
		}
		bucketBytes := buckets[x]
		for off := 0; off+cl <= len(bucketBytes); off += cl {
			ct := bucketBytes[off : off+cl]
			pt, err := cfg.Rnd().Decrypt(tok.ETag, ct)
			if err != nil {
				continue // expected for sentinels and other keywords' entries
			}
			if len(pt) != cfg.IdentifierSize+cfg.Lambda {
				continue
			}
			tail := pt[cfg.IdentifierSize:]
			allZero := true
			for _, b := range tail {
				if b != 0 {
					allZero = false
					break
				}
			}
			if !allZero {
				continue
			}
			id := append([]byte{}, pt[:cfg.IdentifierSize]...)
			seen[string(id)] = id
		}
	}

	ids := make([][]byte, 0, len(seen))
	for _, id := range seen {
		ids = append(ids, id)
	}
	return Result{IDs: ids}, nil
}

type scheme struct{}

func (scheme) Name() string { return name }

func (scheme) NewConfig(params map[string]any) (sse.Config, error) {
	lambda, ok1 := params["lambda"].(int)
	ratio, ok2 := params["ratio"].(float64)
	locality, ok3 := params["locality"].(int)
	identifierSize, ok4 := params["identifier_size"].(int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, fmt.Errorf("dp17: %w: requires int lambda, locality, identifier_size and float64 ratio", errs.ErrConfig)
	}
	rndName, _ := params["rnd"].(string)
	prfName, _ := params["prf"].(string)
	hashName, _ := params["hash"].(string)
	return config.NewDP17Config(lambda, ratio, locality, identifierSize, rndName, prfName, hashName)
}

func (scheme) KeyGen(cfg sse.Config, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.DP17Config)
	if !ok {
		return nil, fmt.Errorf("dp17: %w: wrong config type", errs.ErrConfig)
	}
	key, err := KeyGen(c, src)
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func (scheme) EDBSetup(cfg sse.Config, keyBytes []byte, db sse.Database, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.DP17Config)
	if !ok {
		return nil, fmt.Errorf("dp17: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.DP17Config)
	if !ok {
		return nil, fmt.Errorf("dp17: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.DP17Config)
	if !ok {
		return sse.Result{}, fmt.Errorf("dp17: %w: wrong config type", errs.ErrConfig)
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
