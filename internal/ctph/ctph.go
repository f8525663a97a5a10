package ctph

import (
	"sync"

	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
	"github.com/hoangsonww/fuzzyhash/internal/rolling"
)

// Precision selects the rolling-hash width and the piece hash width.
type Precision = rolling.Precision

const (
	Precision8  = rolling.Precision8
	Precision16 = rolling.Precision16
	Precision32 = rolling.Precision32
	Precision64 = rolling.Precision64
)

// ceilingFactor scales the window size into the byte piece ceiling.
const ceilingFactor = 64

var (
	// ErrInvalidWindowSize is returned when windowSize is not positive.
	ErrInvalidWindowSize = rolling.ErrInvalidWindowSize

	// ErrInvalidDigestSize is returned when digestSize is not positive, or
	// truncates to zero at the selected precision.
	ErrInvalidDigestSize = fherrors.NewError(fherrors.ErrCodeInvalidDigestSize, "invalid digest size")

	// ErrInvalidPrecision is returned for precisions other than 8, 16, 32 and 64.
	ErrInvalidPrecision = rolling.ErrInvalidPrecision

	// ErrInvalidDigest is returned by ParseDigest for malformed digests.
	ErrInvalidDigest = fherrors.NewError(fherrors.ErrCodeInvalidDigest, "invalid digest")
)

// Hasher computes piecewise fuzzy digests of byte input. A Hasher is safe
// for concurrent use.
type Hasher struct {
	windowSize int
	digestSize int
	precision  Precision

	streams sync.Pool
}

// New creates a Hasher. windowSize and digestSize must be positive and
// precision one of 8, 16, 32 or 64.
func New(windowSize, digestSize int, precision Precision) (*Hasher, error) {
	if windowSize <= 0 {
		return nil, fherrors.NewInvalidWindowSizeError(windowSize)
	}
	if err := validateDigestSize(digestSize); err != nil {
		return nil, err
	}
	if !precision.Valid() {
		return nil, fherrors.NewInvalidPrecisionError(int(precision))
	}
	if uint64(digestSize)&precision.Mask() == 0 {
		return nil, fherrors.NewInvalidDigestSizeError(digestSize, "truncates to zero at precision "+precision.String())
	}
	h := &Hasher{
		windowSize: windowSize,
		digestSize: digestSize,
		precision:  precision,
	}
	h.streams.New = func() any { return h.NewStream() }
	return h, nil
}

func validateDigestSize(digestSize int) error {
	if digestSize <= 0 {
		return fherrors.NewInvalidDigestSizeError(digestSize, "must be greater than 0")
	}
	return nil
}

// WindowSize returns the rolling window size.
func (h *Hasher) WindowSize() int { return h.windowSize }

// DigestSize returns the number of pieces per block.
func (h *Hasher) DigestSize() int { return h.digestSize }

// Precision returns the hash width.
func (h *Hasher) Precision() Precision { return h.precision }

// Compute returns the serialized digest of data.
func (h *Hasher) Compute(data []byte) string {
	return h.ComputeDigest(data).String()
}

// ComputeDigest returns the digest of data.
func (h *Hasher) ComputeDigest(data []byte) Digest {
	s := h.streams.Get().(*Stream)
	defer func() {
		s.Reset()
		h.streams.Put(s)
	}()
	s.Write(data)
	return s.Digest()
}

// NewStream starts an incremental computation.
func (h *Hasher) NewStream() *Stream {
	c := &chunker[byte]{
		windowSize: h.windowSize,
		digestSize: h.digestSize,
		ceiling:    ceilingFactor * h.windowSize,
	}

	var err error
	switch h.precision {
	case Precision8:
		c.roller, err = newByteRoller[uint8](h.windowSize, h.digestSize)
	case Precision16:
		c.roller, err = newByteRoller[uint16](h.windowSize, h.digestSize)
	case Precision32:
		c.roller, err = newByteRoller[uint32](h.windowSize, h.digestSize)
	default:
		c.roller, err = newByteRoller[uint64](h.windowSize, h.digestSize)
	}
	if err != nil {
		// Parameters were validated by New.
		panic(err)
	}

	ph := newPieceHasher(h.precision.Bytes())
	c.hashPiece = ph.bytes

	return &Stream{c: c}
}

// Stream is an in-progress byte digest. It implements io.Writer. A Stream
// is not safe for concurrent use.
//
// Digest may be called at any point and returns the digest of exactly the
// bytes written so far. Stopping early is how callers hash a prefix.
type Stream struct {
	c *chunker[byte]
}

// Write feeds p into the digest. It never fails.
func (s *Stream) Write(p []byte) (int, error) {
	for _, b := range p {
		s.c.push(b)
	}
	return len(p), nil
}

// WriteString feeds str into the digest. It never fails.
func (s *Stream) WriteString(str string) (int, error) {
	for i := 0; i < len(str); i++ {
		s.c.push(str[i])
	}
	return len(str), nil
}

// Len returns the number of bytes consumed.
func (s *Stream) Len() int64 {
	return s.c.consumed
}

// Digest returns the digest of the bytes written so far. The stream can
// keep accepting writes afterwards.
func (s *Stream) Digest() Digest {
	return s.c.digest()
}

// Reset discards everything written so the stream can hash new input.
func (s *Stream) Reset() {
	s.c.reset()
}

// HashBytes computes the serialized digest of data.
func HashBytes(data []byte, windowSize, digestSize int, precision Precision) (string, error) {
	h, err := New(windowSize, digestSize, precision)
	if err != nil {
		return "", err
	}
	return h.Compute(data), nil
}

// HashString computes the serialized digest of the bytes of s.
func HashString(s string, windowSize, digestSize int, precision Precision) (string, error) {
	h, err := New(windowSize, digestSize, precision)
	if err != nil {
		return "", err
	}
	st := h.NewStream()
	st.WriteString(s)
	return st.Digest().String(), nil
}
