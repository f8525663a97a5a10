package ctph

import (
	"strconv"
	"strings"

	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
)

// Digest is a parsed piecewise digest.
type Digest struct {
	WindowSize int
	DigestSize int
	Blocks     []string
}

// String serializes d as windowSize:digestSize:block0:block1:...
// A digest without blocks serializes as "windowSize:digestSize:".
func (d Digest) String() string {
	var sb strings.Builder
	n := 0
	for _, b := range d.Blocks {
		n += len(b) + 1
	}
	sb.Grow(n + 24)

	sb.WriteString(strconv.Itoa(d.WindowSize))
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(d.DigestSize))
	sb.WriteByte(':')
	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(b)
	}
	return sb.String()
}

// Similarity is the Jaccard index of the block sets of d and other, or 0
// when their window or digest sizes differ.
func (d Digest) Similarity(other Digest) float64 {
	if d.WindowSize != other.WindowSize || d.DigestSize != other.DigestSize {
		return 0
	}
	return jaccard(d.Blocks, other.Blocks)
}

// ParseDigest parses a serialized digest strictly: both sizes must be
// positive integers and every block a non-empty run of lowercase hex.
// Use Similarity for lenient comparison of arbitrary strings.
func ParseDigest(s string) (Digest, error) {
	fields := strings.Split(s, ":")
	if len(fields) < 3 {
		return Digest{}, fherrors.NewInvalidDigestError(s, "expected at least 3 fields")
	}

	windowSize, err := strconv.Atoi(fields[0])
	if err != nil || windowSize <= 0 {
		return Digest{}, fherrors.NewInvalidDigestError(s, "bad window size")
	}
	digestSize, err := strconv.Atoi(fields[1])
	if err != nil || digestSize <= 0 {
		return Digest{}, fherrors.NewInvalidDigestError(s, "bad digest size")
	}

	d := Digest{WindowSize: windowSize, DigestSize: digestSize}
	blocks := fields[2:]
	if len(blocks) == 1 && blocks[0] == "" {
		return d, nil
	}
	for _, b := range blocks {
		if b == "" || !isLowerHex(b) {
			return Digest{}, fherrors.NewInvalidDigestError(s, "bad block")
		}
	}
	d.Blocks = blocks
	return d, nil
}

func isLowerHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
