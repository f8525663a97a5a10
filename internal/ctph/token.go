package ctph

import (
	"sync"

	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
	"github.com/hoangsonww/fuzzyhash/internal/rolling"
)

// tokenPieceSize is the piece hash width for token input. Token ids span
// the whole int64 range, so there are no precision tiers.
const tokenPieceSize = 8

// TokenHasher computes piecewise fuzzy digests of token id sequences.
// Digests are compatible with Similarity but never comparable to byte
// digests in a meaningful way.
type TokenHasher struct {
	windowSize int
	digestSize int

	streams sync.Pool
}

// NewTokenHasher creates a TokenHasher. Both sizes must be positive.
func NewTokenHasher(windowSize, digestSize int) (*TokenHasher, error) {
	if windowSize <= 0 {
		return nil, fherrors.NewInvalidWindowSizeError(windowSize)
	}
	if err := validateDigestSize(digestSize); err != nil {
		return nil, err
	}
	h := &TokenHasher{windowSize: windowSize, digestSize: digestSize}
	h.streams.New = func() any { return h.NewStream() }
	return h, nil
}

// WindowSize returns the rolling window size.
func (h *TokenHasher) WindowSize() int { return h.windowSize }

// DigestSize returns the number of pieces per block.
func (h *TokenHasher) DigestSize() int { return h.digestSize }

// Compute returns the serialized digest of tokens.
func (h *TokenHasher) Compute(tokens []int64) string {
	return h.ComputeDigest(tokens).String()
}

// ComputeDigest returns the digest of tokens.
func (h *TokenHasher) ComputeDigest(tokens []int64) Digest {
	s := h.streams.Get().(*TokenStream)
	defer func() {
		s.Reset()
		h.streams.Put(s)
	}()
	s.Append(tokens...)
	return s.Digest()
}

// NewStream starts an incremental computation.
func (h *TokenHasher) NewStream() *TokenStream {
	rh, err := rolling.NewToken(h.windowSize)
	if err != nil {
		// windowSize was validated by NewTokenHasher.
		panic(err)
	}
	ph := newPieceHasher(tokenPieceSize)

	return &TokenStream{c: &chunker[int64]{
		windowSize: h.windowSize,
		digestSize: h.digestSize,
		// No ceiling factor for tokens; see chunker.
		ceiling: h.windowSize,
		roller: &tokenRoller{
			h:    rh,
			mod:  uint64(h.digestSize),
			want: uint64(h.digestSize - 1),
		},
		hashPiece: ph.tokens,
	}}
}

// TokenStream is an in-progress token digest. It is not safe for
// concurrent use. Like Stream, Digest reflects exactly the tokens appended
// so far.
type TokenStream struct {
	c *chunker[int64]
}

// Append feeds tokens into the digest.
func (s *TokenStream) Append(tokens ...int64) {
	for _, tok := range tokens {
		s.c.push(tok)
	}
}

// Len returns the number of tokens consumed.
func (s *TokenStream) Len() int64 {
	return s.c.consumed
}

// Digest returns the digest of the tokens appended so far.
func (s *TokenStream) Digest() Digest {
	return s.c.digest()
}

// Reset discards everything appended so the stream can hash new tokens.
func (s *TokenStream) Reset() {
	s.c.reset()
}

// HashTokens computes the serialized digest of tokens.
func HashTokens(tokens []int64, windowSize, digestSize int) (string, error) {
	h, err := NewTokenHasher(windowSize, digestSize)
	if err != nil {
		return "", err
	}
	return h.Compute(tokens), nil
}
