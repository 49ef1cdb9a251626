package artifact

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/zeebo/blake3"
)

// Key is a 32-byte BLAKE3 digest identifying an artifact. Its hex form is the
// artifact's file name in the cache, minus the extension.
type Key [32]byte

// String returns the 64-character lowercase hex form.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Short returns the first 12 hex characters, enough for log lines and tables.
func (k Key) Short() string {
	return k.String()[:12]
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

// ParseKey decodes a 64-character hex digest.
func ParseKey(value string) (Key, error) {
	var k Key
	raw, err := hex.DecodeString(value)
	if err != nil {
		return k, fmt.Errorf("parse artifact key: %w", err)
	}
	if len(raw) != len(k) {
		return k, fmt.Errorf("parse artifact key: want %d bytes, got %d", len(k), len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

// domainKey is the fixed BLAKE3 key for every talkvid construction hash.
// Changing it invalidates every cache directory in existence.
var domainKey = [32]byte{
	't', 'a', 'l', 'k', 'v', 'i', 'd', '.', 'a', 'r', 't', 'i', 'f', 'a', 'c', 't',
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Component tags. Each value written to a Hasher is preceded by its tag and
// length so differently split inputs never collide.
const (
	tagKind   byte = 'K'
	tagString byte = 's'
	tagInt    byte = 'i'
	tagFloat  byte = 'f'
	tagBytes  byte = 'b'
	tagHash   byte = 'h'
	tagBool   byte = 't'
)

// Hasher accumulates the construction description of an artifact: a kind tag
// followed by literal parameters and operand hashes. Methods return the
// receiver so descriptions read as one chained expression.
type Hasher struct {
	h *blake3.Hasher
}

// New starts a description for the given kind (e.g. "filter", "probe", "svg").
func New(kind string) *Hasher {
	h, err := blake3.NewKeyed(domainKey[:])
	if err != nil {
		// Only possible with a key of the wrong length.
		panic("artifact: blake3 keyed hasher: " + err.Error())
	}
	hasher := &Hasher{h: h}
	hasher.write(tagKind, []byte(kind))
	return hasher
}

func (h *Hasher) write(tag byte, payload []byte) {
	var header [9]byte
	header[0] = tag
	binary.BigEndian.PutUint64(header[1:], uint64(len(payload)))
	_, _ = h.h.Write(header[:])
	_, _ = h.h.Write(payload)
}

func (h *Hasher) String(value string) *Hasher {
	h.write(tagString, []byte(value))
	return h
}

func (h *Hasher) Strings(values ...string) *Hasher {
	h.Int(int64(len(values)))
	for _, v := range values {
		h.String(v)
	}
	return h
}

func (h *Hasher) Int(value int64) *Hasher {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(value))
	h.write(tagInt, buf[:])
	return h
}

// Float hashes the IEEE-754 bit pattern, so 0.5 and 0.50 agree while 0.5 and
// 0.5000001 do not.
func (h *Hasher) Float(value float64) *Hasher {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(value))
	h.write(tagFloat, buf[:])
	return h
}

func (h *Hasher) Bool(value bool) *Hasher {
	b := byte(0)
	if value {
		b = 1
	}
	h.write(tagBool, []byte{b})
	return h
}

func (h *Hasher) Bytes(value []byte) *Hasher {
	h.write(tagBytes, value)
	return h
}

// Hash folds the key of an operand into the description.
func (h *Hasher) Hash(key Key) *Hasher {
	h.write(tagHash, key[:])
	return h
}

// Sum finalizes the description. The Hasher may keep being extended afterwards.
func (h *Hasher) Sum() Key {
	var k Key
	copy(k[:], h.h.Sum(nil))
	return k
}
