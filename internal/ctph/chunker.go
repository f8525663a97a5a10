package ctph

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"

	"github.com/hoangsonww/fuzzyhash/internal/rolling"
)

// roller feeds one element into a rolling hash and reports whether the hash
// now sits on a boundary.
type roller[E any] interface {
	roll(e E) bool
	reset()
}

type byteRoller[T rolling.Word] struct {
	h    *rolling.Hash[T]
	mod  T
	want T
}

func newByteRoller[T rolling.Word](windowSize, digestSize int) (*byteRoller[T], error) {
	h, err := rolling.New[T](windowSize)
	if err != nil {
		return nil, err
	}
	// The residue test runs at the accumulator width, so digestSize is
	// truncated the same way. New rejects sizes that truncate to zero.
	return &byteRoller[T]{h: h, mod: T(digestSize), want: T(digestSize - 1)}, nil
}

func (r *byteRoller[T]) roll(b byte) bool {
	r.h.Update(T(b))
	return r.h.Sum()%r.mod == r.want
}

func (r *byteRoller[T]) reset() { r.h.Reset() }

type tokenRoller struct {
	h    *rolling.TokenHash
	mod  uint64
	want uint64
}

func (r *tokenRoller) roll(tok int64) bool {
	r.h.Update(tok)
	return r.h.Sum()%r.mod == r.want
}

func (r *tokenRoller) reset() { r.h.Reset() }

// pieceHasher hashes finished pieces into a fixed-width BLAKE3 XOF prefix.
type pieceHasher struct {
	h   *blake3.Hasher
	out []byte
}

func newPieceHasher(size int) *pieceHasher {
	return &pieceHasher{h: blake3.New(size, nil), out: make([]byte, size)}
}

func (p *pieceHasher) sum() []byte {
	p.h.XOF().Read(p.out)
	p.h.Reset()
	return p.out
}

func (p *pieceHasher) bytes(piece []byte) []byte {
	p.h.Write(piece)
	return p.sum()
}

func (p *pieceHasher) tokens(piece []int64) []byte {
	var buf [8]byte
	for _, tok := range piece {
		binary.LittleEndian.PutUint64(buf[:], uint64(tok))
		p.h.Write(buf[:])
	}
	return p.sum()
}

// chunker is the piecewise engine shared by byte and token input. The piece
// ceiling is a parameter because the two input kinds use different ceilings
// (64*windowSize for bytes, windowSize for tokens); existing digests depend
// on both, so they must not be unified.
type chunker[E any] struct {
	windowSize int
	digestSize int
	ceiling    int

	roller    roller[E]
	hashPiece func([]E) []byte

	blocks   []string
	open     []byte
	piece    []E
	triggers int
	consumed int64
}

func (c *chunker[E]) push(e E) {
	c.consumed++
	hit := c.roller.roll(e)
	c.piece = append(c.piece, e)
	if !hit && len(c.piece) < c.ceiling {
		return
	}

	c.open = appendHex(c.open, c.hashPiece(c.piece))
	c.piece = c.piece[:0]
	c.triggers++

	if c.triggers%c.digestSize == 0 {
		c.blocks = append(c.blocks, string(c.open))
		c.open = c.open[:0]
	}
}

// reset returns the chunker to its initial state, keeping its buffers.
func (c *chunker[E]) reset() {
	c.roller.reset()
	c.blocks = c.blocks[:0]
	c.open = c.open[:0]
	c.piece = c.piece[:0]
	c.triggers = 0
	c.consumed = 0
}

// digest returns the digest of everything pushed so far. The chunker stays
// usable: the trailing piece is hashed into a copy of the open block.
func (c *chunker[E]) digest() Digest {
	blocks := make([]string, len(c.blocks), len(c.blocks)+1)
	copy(blocks, c.blocks)

	tail := c.open
	if len(c.piece) > 0 {
		tail = appendHex(append([]byte(nil), c.open...), c.hashPiece(c.piece))
	}
	if len(tail) > 0 {
		blocks = append(blocks, string(tail))
	}

	return Digest{
		WindowSize: c.windowSize,
		DigestSize: c.digestSize,
		Blocks:     blocks,
	}
}

func appendHex(dst, src []byte) []byte {
	n := len(dst)
	dst = append(dst, make([]byte, hex.EncodedLen(len(src)))...)
	hex.Encode(dst[n:], src)
	return dst
}
