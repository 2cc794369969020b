// Package piptr implements PiPtr (CJJ+14): id-blocks are placed at random
// slots of an array A, and the dictionary D stores pointer-blocks of
// indices into A rather than the id-blocks themselves.
package piptr

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/jezachen/go-sse"
	"github.com/jezachen/go-sse/config"
	"github.com/jezachen/go-sse/internal/errs"
	"github.com/jezachen/go-sse/internal/layout/block"
	"github.com/jezachen/go-sse/internal/layout/randsrc"
	"github.com/jezachen/go-sse/internal/serial"
	"github.com/jezachen/go-sse/key"
)

const name = "PiPtr"

var (
	magicKey   = serial.Magic("sse/piptr/key")
	magicEDB   = serial.Magic("sse/piptr/edb")
	magicToken = serial.Magic("sse/piptr/tok")
	magicResul = serial.Magic("sse/piptr/res")
)

// Key is the single master key PiPtr derives per-keyword sub-keys from.
type Key struct {
	K []byte
}

// EDB is the dictionary D of encrypted pointer-blocks plus the array A of
// encrypted id-blocks that D's pointers address. IndexSize is the byte
// width used to encode an A-slot index, fixed for the lifetime of this EDB.
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
func KeyGen(cfg *config.PiPtrConfig, src randsrc.Source) (Key, error) {
	ks, err := key.Generate(src, 1, cfg.Lambda)
	if err != nil {
		return Key{}, fmt.Errorf("piptr: KeyGen: %w", err)
	}
	return Key{K: ks[0]}, nil
}

func deriveCellKeys(cfg *config.PiPtrConfig, masterKey, w []byte) (k1, k2 []byte, err error) {
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

// indexByteLen returns the number of bytes needed to encode any value in
// [0, maxIndex] big-endian, at least one byte.
func indexByteLen(maxIndex uint64) int {
	n := (bits.Len64(maxIndex) + 7) / 8
	if n == 0 {
		n = 1
	}
	return n
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

// randomPermutation returns a uniformly random permutation of 1..n, drawn
// by unbiased rejection sampling against src.
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

// randUintn draws a uniform value in [0,n) from src via rejection sampling.
func randUintn(n uint64, src randsrc.Source) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	var buf [8]byte
	max := ^uint64(0) - (^uint64(0) % n)
	for {
		if _, err := src.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("piptr: randomness draw failed: %w", err)
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < max {
			return v % n, nil
		}
	}
}

func checkNonZeroIdentifiers(ids [][]byte, idSize int) error {
	for _, id := range ids {
		if len(id) != idSize {
			return fmt.Errorf("piptr: %w: identifier length mismatch", errs.ErrLengthMismatch)
		}
		allZero := true
		for _, b := range id {
			if b != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return fmt.Errorf("piptr: %w: all-zero identifier collides with block codec sentinel", errs.ErrConfig)
		}
	}
	return nil
}

// EDBSetup builds the id-block array A and pointer-block dictionary D.
func EDBSetup(cfg *config.PiPtrConfig, key Key, db sse.Database, src randsrc.Source) (EDB, error) {
	totalBlocks := 0
	for _, ids := range db {
		if err := checkNonZeroIdentifiers(ids, cfg.IdentifierSize); err != nil {
			return EDB{}, err
		}
		totalBlocks += (len(ids) + cfg.B - 1) / cfg.B
	}
	perm, err := randomPermutation(totalBlocks, src)
	if err != nil {
		return EDB{}, fmt.Errorf("piptr: EDBSetup: %w", err)
	}
	indexSize := indexByteLen(uint64(totalBlocks))

	a := make(map[uint64][]byte)
	d := make(map[string][]byte)
	slotCursor := 0

	for w, ids := range db {
		k1, k2, err := deriveCellKeys(cfg, key.K, []byte(w))
		if err != nil {
			return EDB{}, fmt.Errorf("piptr: EDBSetup: %w", err)
		}

		var indices [][]byte
		perr := block.Partition(ids, cfg.B, cfg.IdentifierSize, func(blk []byte) error {
			ct, err := cfg.SKE().Encrypt(k2, blk, src)
			if err != nil {
				return err
			}
			slot := perm[slotCursor]
			slotCursor++
			a[slot] = ct
			idxBytes := make([]byte, indexSize)
			putIndex(idxBytes, slot)
			indices = append(indices, idxBytes)
			return nil
		})
		if perr != nil {
			return EDB{}, fmt.Errorf("piptr: EDBSetup: %w", perr)
		}

		c := 0
		perr = block.Partition(indices, cfg.Bp, indexSize, func(ptrBlk []byte) error {
			label, err := cfg.PRF().Sum(k1, counterBytes(c), cfg.PRFOutputLength)
			if err != nil {
				return err
			}
			ct, err := cfg.SKE().Encrypt(k2, ptrBlk, src)
			if err != nil {
				return err
			}
			d[string(label)] = ct
			c++
			return nil
		})
		if perr != nil {
			return EDB{}, fmt.Errorf("piptr: EDBSetup: %w", perr)
		}
	}
	return EDB{D: d, A: a, IndexSize: indexSize}, nil
}

// TokenGen derives the per-keyword cell keys needed to walk D and A.
func TokenGen(cfg *config.PiPtrConfig, key Key, w string) (Token, error) {
	k1, k2, err := deriveCellKeys(cfg, key.K, []byte(w))
	if err != nil {
		return Token{}, fmt.Errorf("piptr: TokenGen: %w", err)
	}
	return Token{K1: k1, K2: k2}, nil
}

// Search walks the pointer-block dictionary, then follows each pointer
// into the id-block array, decrypting and unpacking identifiers in order.
func Search(cfg *config.PiPtrConfig, edb EDB, tok Token) (Result, error) {
	var ids [][]byte
	for c := 0; ; c++ {
		label, err := cfg.PRF().Sum(tok.K1, counterBytes(c), cfg.PRFOutputLength)
		if err != nil {
			return Result{}, fmt.Errorf("piptr: Search: %w", err)
		}
		ptrCT, ok := edb.D[string(label)]
		if !ok {
			break
		}
		ptrBlk, err := cfg.SKE().Decrypt(tok.K2, ptrCT)
		if err != nil {
			return Result{}, fmt.Errorf("piptr: Search: %w: %v", errs.ErrDecryption, err)
		}
		for off := 0; off+edb.IndexSize <= len(ptrBlk); off += edb.IndexSize {
			idxBytes := ptrBlk[off : off+edb.IndexSize]
			allZero := true
			for _, b := range idxBytes {
				if b != 0 {
					allZero = false
					break
				}
			}
			if allZero {
				break
			}
			idx := getIndex(idxBytes)
			idCT, ok := edb.A[idx]
			if !ok {
				return Result{}, fmt.Errorf("piptr: Search: %w: dangling pointer into A", errs.ErrSerialization)
			}
			idBlk, err := cfg.SKE().Decrypt(tok.K2, idCT)
			if err != nil {
				return Result{}, fmt.Errorf("piptr: Search: %w: %v", errs.ErrDecryption, err)
			}
			ids = append(ids, block.ParseByIDSize(idBlk, cfg.IdentifierSize)...)
		}
	}
	return Result{IDs: ids}, nil
}

type scheme struct{}

func (scheme) Name() string { return name }

func (scheme) NewConfig(params map[string]any) (sse.Config, error) {
	lambda, ok1 := params["lambda"].(int)
	prfOutputLength, ok2 := params["prf_output_length"].(int)
	identifierSize, ok3 := params["identifier_size"].(int)
	b, ok4 := params["b"].(int)
	bp, ok5 := params["bp"].(int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil, fmt.Errorf("piptr: %w: requires int lambda, prf_output_length, identifier_size, b, bp", errs.ErrConfig)
	}
	prfName, _ := params["prf"].(string)
	skeName, _ := params["ske"].(string)
	return config.NewPiPtrConfig(lambda, prfOutputLength, identifierSize, b, bp, prfName, skeName)
}

func (scheme) KeyGen(cfg sse.Config, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.PiPtrConfig)
	if !ok {
		return nil, fmt.Errorf("piptr: %w: wrong config type", errs.ErrConfig)
	}
	key, err := KeyGen(c, src)
	if err != nil {
		return nil, err
	}
	return key.Serialize(), nil
}

func (scheme) EDBSetup(cfg sse.Config, keyBytes []byte, db sse.Database, src io.Reader) ([]byte, error) {
	c, ok := cfg.(*config.PiPtrConfig)
	if !ok {
		return nil, fmt.Errorf("piptr: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.PiPtrConfig)
	if !ok {
		return nil, fmt.Errorf("piptr: %w: wrong config type", errs.ErrConfig)
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
	c, ok := cfg.(*config.PiPtrConfig)
	if !ok {
		return sse.Result{}, fmt.Errorf("piptr: %w: wrong config type", errs.ErrConfig)
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
