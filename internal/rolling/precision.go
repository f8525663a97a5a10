package rolling

import (
	"encoding/binary"
	"strconv"

	cristalbase64 "github.com/cristalhq/base64"

	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
)

// Precision selects the accumulator width in bits.
type Precision uint8

const (
	Precision8  Precision = 8
	Precision16 Precision = 16
	Precision32 Precision = 32
	Precision64 Precision = 64
)

// ErrInvalidPrecision is returned for widths other than 8, 16, 32 and 64.
var ErrInvalidPrecision = fherrors.NewError(fherrors.ErrCodeInvalidPrecision, "precision must be 8, 16, 32 or 64")

// Valid reports whether p is one of the supported widths.
func (p Precision) Valid() bool {
	switch p {
	case Precision8, Precision16, Precision32, Precision64:
		return true
	default:
		return false
	}
}

// Bytes returns the width of p in bytes.
func (p Precision) Bytes() int {
	return int(p) / 8
}

// Mask returns the all-ones value at width p.
func (p Precision) Mask() uint64 {
	if p >= Precision64 {
		return ^uint64(0)
	}
	return 1<<uint(p) - 1
}

func (p Precision) String() string {
	return strconv.Itoa(int(p))
}

// ParsePrecision converts a bit count into a Precision.
func ParsePrecision(bits int) (Precision, error) {
	p := Precision(bits)
	if bits < 0 || bits > 64 || !p.Valid() {
		return 0, fherrors.NewInvalidPrecisionError(bits)
	}
	return p, nil
}

// Fingerprint rolls data through a hash of the given width and returns the
// final accumulator, widened to 64 bits, as big-endian standard base64.
func Fingerprint(data []byte, windowSize int, precision Precision) (string, error) {
	var (
		sum uint64
		err error
	)
	switch precision {
	case Precision8:
		sum, err = fingerprint[uint8](data, windowSize)
	case Precision16:
		sum, err = fingerprint[uint16](data, windowSize)
	case Precision32:
		sum, err = fingerprint[uint32](data, windowSize)
	case Precision64:
		sum, err = fingerprint[uint64](data, windowSize)
	default:
		return "", fherrors.NewInvalidPrecisionError(int(precision))
	}
	if err != nil {
		return "", err
	}
	return encodeSum(sum), nil
}

// FingerprintTokens is Fingerprint for token sequences; the width is always 64.
func FingerprintTokens(tokens []int64, windowSize int) (string, error) {
	t, err := NewToken(windowSize)
	if err != nil {
		return "", err
	}
	for _, tok := range tokens {
		t.Update(tok)
	}
	return encodeSum(t.Sum()), nil
}

func fingerprint[T Word](data []byte, windowSize int) (uint64, error) {
	h, err := New[T](windowSize)
	if err != nil {
		return 0, err
	}
	h.Write(data)
	return uint64(h.Sum()), nil
}

func encodeSum(sum uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], sum)
	return cristalbase64.StdEncoding.EncodeToString(buf[:])
}
