// Package pi2lev implements Pi2Lev (CJJ+14): a three-case locality-aware
// construction that stores small postings lists directly in the
// dictionary, medium lists behind one level of indirection through an
// array A, and large lists behind two levels.
package pi2lev

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/layout/block"
	"github.com/jezachen/go-sse/internal/layout/randsrc"
	"github.com/jezachen/go-sse/internal/serial"
	"github.com/jezachen/go-sse/key"
)

const name = "Pi2Lev"

const (
	tagIdentifiers byte = 0x00
	tagPointers    byte = 0x01
)

const maxDescentDepth = 3

var (
	magicKey   = serial.Magic("sse/pi2lev/key")
	magicEDB   = serial.Magic("sse/pi2lev/edb")
	magicToken = serial.Magic("sse/pi2lev/tok")
	magicResul = serial.Magic("sse/pi2lev/res")
)

// Key is the single master key Pi2Lev derives per-keyword sub-keys from.
type Key struct {
	K []byte
}

// EDB is the top-level dictionary D (one entry per keyword) plus the
// shared array A used by the medium and large cases.
type EDB struct {
	D         map[string][]byte
	A         map[uint64][]byte
	IndexSize int
}

// Token is the pair of per-keyword derived keys needed to walk D and A.
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
	w.PutUint32(uint32(e.IndexSize))
	dKeys := make([]string, 0, len(e.D))
	for k := range e.D {
		dKeys = append(dKeys, k)
	}
	w.PutStringBytesMap(dKeys, e.D)
	w.PutUint32(uint32(len(e.A)))
	for idx, ct := range e.A {
		w.PutUint64(idx)
		w.PutBytes(ct)
	}
	return w.Bytes()
}

// DeserializeEDB parses an EDB previously produced by EDB.Serialize.
func DeserializeEDB(data []byte) (EDB, error) {
	r, err := serial.CheckMagic(data, magicEDB)
	if err != nil {
		return EDB{}, err
	}
	indexSize, err := r.Uint32()
	if err != nil {
		return EDB{}, err
	}
	d, err := r.StringBytesMap()
	if err != nil {
		return EDB{}, err
	}
	n, err := r.Uint32()
	if err != nil {
		return EDB{}, err
	}
	a := make(map[uint64][]byte, n)
	for i := uint32(0); i < n; i++ {
		idx, err := r.Uint64()
		if err != nil {
			return EDB{}, err
		}
		ct, err := r.Bytes()
		if err != nil {
			return EDB{}, err
		}
		a[idx] = ct
	}
	return EDB{D: d, A: a, IndexSize: int(indexSize)}, nil
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
func KeyGen(cfg *config.Pi2LevConfig, src randsrc.Source) (Key, error) {
	ks, err := key.Generate(src, 1, cfg.Lambda)
	if err != nil {
		return Key{}, fmt.Errorf("pi2lev: KeyGen: %w", err)
	}
	return Key{K: ks[0]}, nil
}

func deriveCellKeys(cfg *config.Pi2LevConfig, masterKey, w []byte) (k1, k2 []byte, err error) {
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

func topLabel(cfg *config.Pi2LevConfig, k1 []byte) ([]byte, error) {
	var zero [4]byte
	return cfg.PRF().Sum(k1, zero[:], cfg.PRFOutputLength)
}

func putIndex(dst []byte, idx uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(idx)
		idx >>= 8
	}
}

func getIndex(src []byte) uint64 {
	var idx uint64
	for _, b := range src {
		idx = idx<<8 | uint64(b)
	}
	return idx
}

func randUintn(n uint64, src randsrc.Source) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	var buf [8]byte
	max := ^uint64(0) - (^uint64(0) % n)
	for {
		if _, err := src.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("pi2lev: randomness draw failed: %w", err)
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < max {
			return v % n, nil
		}
	}
}

func randomPermutation(n int, src randsrc.Source) ([]uint64, error) {
	perm := make([]uint64, n)
	for i := range perm {
		perm[i] = uint64(i + 1)
	}
	for i := n - 1; i > 0; i-- {
		j, err := randUintn(uint64(i+1), src)
		if err != nil {
			return nil, err
		}
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}

func checkNonZeroIdentifiers(ids [][]byte, idSize int) error {
	for _, id := range ids {
		if len(id) != idSize {
			return fmt.Errorf("pi2lev: %w: identifier length mismatch", errs.ErrLengthMismatch)
		}
		allZero := true
		for _, b := range id {
			if b != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return fmt.Errorf("pi2lev: %w: all-zero identifier collides with block codec sentinel", errs.ErrConfig)
		}
	}
	return nil
}

type wordCase int

const (
	caseSmall wordCase = iota
	caseMedium
	caseLarge
)

func classify(cfg *config.Pi2LevConfig, n int) (wordCase, error) {
	switch {
	case n <= cfg.Bp:
		return caseSmall, nil
	case n <= cfg.B*cfg.B2p:
		return caseMedium, nil
	case n < cfg.B*cfg.B2*cfg.B2p:
		return caseLarge, nil
	default:
		return 0, fmt.Errorf("pi2lev: %w: posting list of length %d exceeds the large-case bound", errs.ErrSizeOverflow, n)
	}
}

// aSlotsNeeded returns how many A-array slots EDBSetup will consume for a
// keyword with n postings, given its case.
func aSlotsNeeded(cfg *config.Pi2LevConfig, n int, c wordCase) int {
	switch c {
	case caseSmall:
		return 0
	case caseMedium:
		return (n + cfg.B - 1) / cfg.B
	default: // caseLarge
		idBlocks := (n + cfg.B - 1) / cfg.B
		ptrBlocks := (idBlocks + cfg.B2 - 1) / cfg.B2
		return idBlocks + ptrBlocks
	}
}

// EDBSetup builds the dictionary D and shared array A for db.
func EDBSetup(cfg *config.Pi2LevConfig, key Key, db sse.Database, src randsrc.Source) (EDB, error) {
	keys := make([]string, 0, len(db))
	cases := make(map[string]wordCase, len(db))
	totalASlots := 0
	for w, ids := range db {
		if err := checkNonZeroIdentifiers(ids, cfg.IdentifierSize); err != nil {
			return EDB{}, err
		}
		c, err := classify(cfg, len(ids))
		if err != nil {
			return EDB{}, fmt.Errorf("pi2lev: EDBSetup: keyword %q: %w", w, err)
		}
		keys = append(keys, w)
		cases[w] = c
		totalASlots += aSlotsNeeded(cfg, len(ids), c)
	}

	perm, err := randomPermutation(totalASlots, src)
	if err != nil {
		return EDB{}, fmt.Errorf("pi2lev: EDBSetup: %w", err)
	}
	cursor := 0
	nextSlot := func() uint64 {
		s := perm[cursor]
		cursor++
		return s
	}

	d := make(map[string][]byte, len(keys))
	a := make(map[uint64][]byte)

	for _, w := range keys {
		ids := db[w]
		k1, k2, err := deriveCellKeys(cfg, key.K, []byte(w))
		if err != nil {
			return EDB{}, fmt.Errorf("pi2lev: EDBSetup: %w", err)
		}
		label, err := topLabel(cfg, k1)
		if err != nil {
			return EDB{}, fmt.Errorf("pi2lev: EDBSetup: %w", err)
		}

		var topTag byte
		var topPayload []byte

		switch cases[w] {
		case caseSmall:
			topTag = tagIdentifiers
			blk := make([]byte, cfg.Bp*cfg.IdentifierSize)
			for i, id := range ids {
				copy(blk[i*cfg.IdentifierSize:], id)
			}
			topPayload = blk

		case caseMedium:
			topTag = tagPointers
			var idxEntries [][]byte
			perr := block.Partition(ids, cfg.B, cfg.IdentifierSize, func(blk []byte) error {
				ct, err := cfg.SKE().Encrypt(k2, append([]byte{tagIdentifiers}, blk...), src)
				if err != nil {
					return err
				}
				slot := nextSlot()
				a[slot] = ct
				idxBytes := make([]byte, cfg.IndexSize)
				putIndex(idxBytes, slot)
				idxEntries = append(idxEntries, idxBytes)
				return nil
			})
			if perr != nil {
				return EDB{}, fmt.Errorf("pi2lev: EDBSetup: %w", perr)
			}
			topBlk := make([]byte, cfg.Bp*cfg.IdentifierSize)
			for i, e := range idxEntries {
				copy(topBlk[i*cfg.IndexSize:], e)
			}
			topPayload = topBlk

		default: // caseLarge
			topTag = tagPointers
			var idBlockIdx [][]byte
			perr := block.Partition(ids, cfg.B, cfg.IdentifierSize, func(blk []byte) error {
				ct, err := cfg.SKE().Encrypt(k2, append([]byte{tagIdentifiers}, blk...), src)
				if err != nil {
					return err
				}
				slot := nextSlot()
				a[slot] = ct
				idxBytes := make([]byte, cfg.IndexSize)
				putIndex(idxBytes, slot)
				idBlockIdx = append(idBlockIdx, idxBytes)
				return nil
			})
			if perr != nil {
				return EDB{}, fmt.Errorf("pi2lev: EDBSetup: %w", perr)
			}

			var ptrBlockIdx [][]byte
			perr = block.Partition(idBlockIdx, cfg.B2, cfg.IndexSize, func(blk []byte) error {
				ct, err := cfg.SKE().Encrypt(k2, append([]byte{tagPointers}, blk...), src)
				if err != nil {
					return err
				}
				slot := nextSlot()
				a[slot] = ct
				idxBytes := make([]byte, cfg.IndexSize)
				putIndex(idxBytes, slot)
				ptrBlockIdx = append(ptrBlockIdx, idxBytes)
				return nil
			})
			if perr != nil {
				return EDB{}, fmt.Errorf("pi2lev: EDBSetup: %w", perr)
			}

			topBlk := make([]byte, cfg.Bp*cfg.IdentifierSize)
			for i, e := range ptrBlockIdx {
				copy(topBlk[i*cfg.IndexSize:], e)
			}
			topPayload = topBlk
		}

		ct, err := cfg.SKE().Encrypt(k2, append([]byte{topTag}, topPayload...), src)
		if err != nil {
			return EDB{}, fmt.Errorf("pi2lev: EDBSetup: %w", err)
		}
		d[string(label)] = ct
	}

	return EDB{D: d, A: a, IndexSize: cfg.IndexSize}, nil
}

// TokenGen derives the per-keyword cell keys needed to walk D and A.
func TokenGen(cfg *config.Pi2LevConfig, key Key, w string) (Token, error) {
	k1, k2, err := deriveCellKeys(cfg, key.K, []byte(w))
	if err != nil {
		return Token{}, fmt.Errorf("pi2lev: TokenGen: %w", err)
	}
	return Token{K1: k1, K2: k2}, nil
}

func parseIndices(payload []byte, indexSize int) [][]byte {
	return block.ParseByIDSize(payload, indexSize)
}

// Search descends from D into A (at most two further levels), following
// tagged pointer-blocks until it reaches an identifiers block.
func Search(cfg *config.Pi2LevConfig, edb EDB, tok Token) (Result, error) {
	label, err := topLabel(cfg, tok.K1)
	if err != nil {
		return Result{}, fmt.Errorf("pi2lev: Search: %w", err)
	}
	ct, ok := edb.D[string(label)]
	if !ok {
		return Result{}, nil
	}

	ids, err := descend(cfg, edb, tok, ct, 1)
	if err != nil {
		return Result{}, err
	}
	return Result{IDs: ids}, nil
}

// descend decrypts one cell and, per its tag byte, either returns its
// identifiers or recurses into each of its pointer-block's A-indices.
func descend(cfg *config.Pi2LevConfig, edb EDB, tok Token, ct []byte, depth int) ([][]byte, error) {
	if depth > maxDescentDepth {
		return nil, fmt.Errorf("pi2lev: Search: %w: exceeded maximum descent depth", errs.ErrSerialization)
	}
	plain, err := cfg.SKE().Decrypt(tok.K2, ct)
	if err != nil {
		return nil, fmt.Errorf("pi2lev: Search: %w: %v", errs.ErrDecryption, err)
	}
	if len(plain) == 0 {
		return nil, fmt.Errorf("pi2lev: Search: %w: empty cell payload", errs.ErrSerialization)
	}
	tag, payload := plain[0], plain[1:]
	switch tag {
	case tagIdentifiers:
		return block.ParseByIDSize(payload, cfg.IdentifierSize), nil
	case tagPointers:
		var ids [][]byte
		for _, idxBytes := range parseIndices(payload, edb.IndexSize) {
			idx := getIndex(idxBytes)
			next, ok := edb.A[idx]
			if !ok {
				return nil, fmt.Errorf("pi2lev: Search: %w: dangling pointer into A", errs.ErrSerialization)
			}
			sub, err := descend(cfg, edb, tok, next, depth+1)
			if err != nil {
				return nil, err
			}
			ids = append(ids, sub...)
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("pi2lev: Search: %w: unknown cell tag", errs.ErrSerialization)
	}
}

type scheme struct{}

func (scheme) Name() string { return name }

func (scheme) NewConfig(params map[string]any) (sse.Config, error) {
	lambda, ok1 := params["lambda"].(int)
	prfOutputLength, ok2 := params["prf_output_length"].(int)
	identifierSize, ok3 := params["identifier_size"].(int)
	b, ok4 := params["b"].(int)
	bp, ok5 := params["bp"].(int)
	b2, ok6 := params["b2"].(int)
	b2p, ok7 := params["b2p"].(int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 || !ok7 {
		return nil, fmt.Errorf("pi2lev: %w: requires int lambda, prf_output_length, identifier_size, b, bp, b2, b2p", errs.ErrConfig)
	}
	prfName, _ := params["prf"].(string)
	skeName, _ := params["ske"].(string)
	return config.NewPi2LevConfig(lambda, prfOutputLength, identifierSize, b, bp, b2, b2p, prfName, skeName)
}

func (scheme) KeyGen(cfg sse.Config, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.Pi2LevConfig)
	if !ok {
		return nil, fmt.Errorf("pi2lev: %w: wrong config type", errs.ErrConfig)
	}
	key, err := KeyGen(c, src)
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func (scheme) EDBSetup(cfg sse.Config, keyBytes []byte, db sse.Database, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.Pi2LevConfig)
	if !ok {
		return nil, fmt.Errorf("pi2lev: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.Pi2LevConfig)
	if !ok {
		return nil, fmt.Errorf("pi2lev: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.Pi2LevConfig)
	if !ok {
		return sse.Result{}, fmt.Errorf("pi2lev: %w: wrong config type", errs.ErrConfig)
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
