// Package crypto derives content keys for documents. Keys identify exact
// content; they say nothing about similarity.
package crypto

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// KeySize is the length in bytes of a content key.
const KeySize = blake2b.Size256

// Hash returns the BLAKE2b-256 key of data.
func Hash(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// HashTokens keys a token sequence over its little-endian encoding, so equal
// sequences share a key regardless of how they were read.
func HashTokens(tokens []int64) []byte {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	for _, t := range tokens {
		binary.LittleEndian.PutUint64(buf[:], uint64(t))
		h.Write(buf[:])
	}
	return h.Sum(nil)
}

// EncodeKey renders a key as lowercase hex.
func EncodeKey(b []byte) string {
	return hex.EncodeToString(b)
}

// ShortID is the first 16 hex characters of the key of data, used as a
// default index id.
func ShortID(data []byte) string {
	return EncodeKey(Hash(data))[:16]
}
