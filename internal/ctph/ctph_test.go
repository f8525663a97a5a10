package ctph_test

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/hoangsonww/fuzzyhash/internal/ctph"
)

func mustNew(t testing.TB, w, d int, p ctph.Precision) *ctph.Hasher {
	t.Helper()
	h, err := ctph.New(w, d, p)
	if err != nil {
		t.Fatalf("New(%d, %d, %d): %v", w, d, p, err)
	}
	return h
}

// corpus is a few kilobytes of structured text with locally distinct lines.
func corpus() []byte {
	var buf bytes.Buffer
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&buf, "line %d: the quick brown fox jumps over the lazy dog\n", i)
	}
	return buf.Bytes()
}

func TestHelloWorld(t *testing.T) {
	tests := []struct {
		precision ctph.Precision
		want      string
	}{
		{ctph.Precision8, "8:4:ea9bb2a8"},
		{ctph.Precision16, "8:4:d749"},
		{ctph.Precision32, "8:4:d74981ef"},
		{ctph.Precision64, "8:4:d74981efa70a0c88"},
	}

	for _, tt := range tests {
		t.Run(tt.precision.String(), func(t *testing.T) {
			got := mustNew(t, 8, 4, tt.precision).Compute([]byte("hello world"))
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		w, d      int
		precision ctph.Precision
		want      error
	}{
		{"zero window", 0, 4, ctph.Precision8, ctph.ErrInvalidWindowSize},
		{"negative window", -3, 4, ctph.Precision8, ctph.ErrInvalidWindowSize},
		{"zero digest", 8, 0, ctph.Precision8, ctph.ErrInvalidDigestSize},
		{"negative digest", 8, -1, ctph.Precision32, ctph.ErrInvalidDigestSize},
		{"bad precision", 8, 4, 12, ctph.ErrInvalidPrecision},
		{"digest truncates to zero", 8, 256, ctph.Precision8, ctph.ErrInvalidDigestSize},
		{"digest truncates to zero at 16", 8, 65536, ctph.Precision16, ctph.ErrInvalidDigestSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ctph.New(tt.w, tt.d, tt.precision)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := ctph.New(8, 256, ctph.Precision16); err != nil {
		t.Errorf("expected digest size 256 to be valid at precision 16, got %v", err)
	}
}

func TestDigestSizeTruncatesAtWidth(t *testing.T) {
	// 300 is 44 at 8 bits; no byte of "hello world" lands on residue 43.
	got := mustNew(t, 8, 300, ctph.Precision8).Compute([]byte("hello world"))
	if got != "8:300:d7" {
		t.Errorf("expected 8:300:d7, got %q", got)
	}
}

func TestDeterminism(t *testing.T) {
	data := corpus()
	for _, p := range []ctph.Precision{8, 16, 32, 64} {
		h := mustNew(t, 16, 8, p)
		a := h.Compute(data)
		b := mustNew(t, 16, 8, p).Compute(data)
		if a != b {
			t.Errorf("precision %d: digests differ", p)
		}
	}
}

func TestFormat(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := make([]byte, 20000)
	rng.Read(data)

	for _, w := range []int{1, 7, 64} {
		for _, d := range []int{1, 4, 32} {
			for _, p := range []ctph.Precision{8, 16, 32, 64} {
				got := mustNew(t, w, d, p).Compute(data)
				pattern := fmt.Sprintf(`^%d:%d:([0-9a-f]{%d})+(:([0-9a-f]{%d})+)*$`, w, d, 2*p.Bytes(), 2*p.Bytes())
				if !regexp.MustCompile(pattern).MatchString(got) {
					t.Fatalf("w=%d d=%d p=%d: digest %.80q does not match %s", w, d, p, got, pattern)
				}
			}
		}
	}
}

func TestBlocksHoldDigestSizePieces(t *testing.T) {
	data := corpus()
	d := mustNew(t, 16, 8, ctph.Precision32).ComputeDigest(data)
	for i, b := range d.Blocks {
		pieces := len(b) / 8
		if i < len(d.Blocks)-1 && pieces != 8 {
			t.Fatalf("block %d: expected 8 pieces, got %d", i, pieces)
		}
		if pieces == 0 || pieces > 9 {
			t.Fatalf("block %d: unexpected piece count %d", i, pieces)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	if got := mustNew(t, 8, 4, ctph.Precision8).Compute(nil); got != "8:4:" {
		t.Errorf("expected 8:4:, got %q", got)
	}
	if got := mustNew(t, 32, 16, ctph.Precision64).Compute([]byte{}); got != "32:16:" {
		t.Errorf("expected 32:16:, got %q", got)
	}
}

func TestPieceCeiling(t *testing.T) {
	// A zero window sum never hits residue 1, so only the 64*w ceiling cuts.
	h := mustNew(t, 1, 2, ctph.Precision8)

	if got := h.Compute(make([]byte, 200)); got != "1:2:4d4d:4d71" {
		t.Errorf("expected 1:2:4d4d:4d71, got %q", got)
	}
	// Boundary-aligned input leaves no trailing block.
	if got := h.Compute(make([]byte, 128)); got != "1:2:4d4d" {
		t.Errorf("expected 1:2:4d4d, got %q", got)
	}
}

func TestDigestSizeOneTriggersEveryByte(t *testing.T) {
	d := mustNew(t, 2, 1, ctph.Precision8).ComputeDigest(make([]byte, 1000))
	if len(d.Blocks) != 1000 {
		t.Fatalf("expected 1000 blocks, got %d", len(d.Blocks))
	}
	for _, b := range d.Blocks {
		if b != "2d" {
			t.Fatalf("expected every block to be 2d, got %q", b)
		}
	}
}

func TestSelfSimilarity(t *testing.T) {
	data := corpus()
	for _, p := range []ctph.Precision{8, 16, 32, 64} {
		h := mustNew(t, 16, 8, p)
		if s := ctph.Similarity(h.Compute(data), h.Compute(data)); s != 1.0 {
			t.Errorf("precision %d: expected 1.0, got %v", p, s)
		}
	}
}

func TestParameterMismatch(t *testing.T) {
	data := corpus()
	a := mustNew(t, 16, 8, ctph.Precision32).Compute(data)
	b := mustNew(t, 32, 8, ctph.Precision32).Compute(data)
	c := mustNew(t, 16, 4, ctph.Precision32).Compute(data)

	if s := ctph.Similarity(a, b); s != 0 {
		t.Errorf("window mismatch: expected 0, got %v", s)
	}
	if s := ctph.Similarity(a, c); s != 0 {
		t.Errorf("digest mismatch: expected 0, got %v", s)
	}
}

func TestNearDuplicateLocality(t *testing.T) {
	b1 := corpus()
	b2 := append([]byte(nil), b1...)
	b2[3000] = 'X'

	h := mustNew(t, 16, 8, ctph.Precision16)
	d1, d2 := h.ComputeDigest(b1), h.ComputeDigest(b2)
	if len(d1.Blocks) != 40 || len(d2.Blocks) != 41 {
		t.Fatalf("expected 40 and 41 blocks, got %d and %d", len(d1.Blocks), len(d2.Blocks))
	}

	s := ctph.Similarity(d1.String(), d2.String())
	if s <= 0 || s >= 1 {
		t.Fatalf("expected similarity in (0, 1), got %v", s)
	}
	if want := 11.0 / 70.0; math.Abs(s-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, s)
	}
	if s2 := d1.Similarity(d2); s2 != s {
		t.Errorf("expected Digest.Similarity %v to match %v", s2, s)
	}

	for _, p := range []ctph.Precision{8, 32, 64} {
		h := mustNew(t, 8, 4, p)
		s := ctph.Similarity(h.Compute(b1), h.Compute(b2))
		if s <= 0 || s >= 1 {
			t.Errorf("precision %d: expected similarity in (0, 1), got %v", p, s)
		}
	}
}

func TestStreamMatchesCompute(t *testing.T) {
	data := corpus()
	h := mustNew(t, 16, 8, ctph.Precision32)
	want := h.Compute(data)

	s := h.NewStream()
	for off := 0; off < len(data); off += 37 {
		end := off + 37
		if end > len(data) {
			end = len(data)
		}
		s.Write(data[off:end])
	}
	if got := s.Digest().String(); got != want {
		t.Fatalf("streamed digest differs from Compute")
	}
	if s.Len() != int64(len(data)) {
		t.Errorf("expected %d bytes consumed, got %d", len(data), s.Len())
	}
}

func TestStreamPrefixDigest(t *testing.T) {
	data := corpus()
	h := mustNew(t, 16, 8, ctph.Precision32)

	s := h.NewStream()
	s.Write(data[:1000])
	prefix := s.Digest().String()
	if want := h.Compute(data[:1000]); prefix != want {
		t.Fatalf("prefix digest differs from digest of the prefix")
	}

	// Taking a digest must not disturb the stream.
	s.Write(data[1000:])
	if got, want := s.Digest().String(), h.Compute(data); got != want {
		t.Fatalf("digest after prefix snapshot differs from full digest")
	}
}

func TestStreamReset(t *testing.T) {
	h := mustNew(t, 8, 4, ctph.Precision8)

	s := h.NewStream()
	s.Write(corpus())
	s.Reset()
	if s.Len() != 0 || len(s.Digest().Blocks) != 0 {
		t.Fatalf("expected an empty stream after Reset, got %q", s.Digest())
	}
	s.WriteString("hello world")
	if got := s.Digest().String(); got != "8:4:ea9bb2a8" {
		t.Errorf("expected 8:4:ea9bb2a8 after Reset, got %q", got)
	}
}

func TestComputeReusesStreams(t *testing.T) {
	h := mustNew(t, 16, 8, ctph.Precision32)
	inputs := [][]byte{corpus(), []byte("hello world"), nil, bytes.Repeat([]byte{'a'}, 5000)}

	want := make([]string, len(inputs))
	for i, in := range inputs {
		s := h.NewStream()
		s.Write(in)
		want[i] = s.Digest().String()
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				i := (g + n) % len(inputs)
				if got := h.Compute(inputs[i]); got != want[i] {
					t.Errorf("input %d: expected %q, got %q", i, want[i], got)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestHashStringAndBytes(t *testing.T) {
	a, err := ctph.HashString("hello world", 8, 4, ctph.Precision8)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ctph.HashBytes([]byte("hello world"), 8, 4, ctph.Precision8)
	if err != nil {
		t.Fatal(err)
	}
	if a != b || !strings.HasPrefix(a, "8:4:") {
		t.Errorf("expected equal digests with prefix 8:4:, got %q and %q", a, b)
	}
	if _, err := ctph.HashBytes(nil, 8, 0, ctph.Precision8); !errors.Is(err, ctph.ErrInvalidDigestSize) {
		t.Errorf("expected ErrInvalidDigestSize, got %v", err)
	}
}

func BenchmarkCompute(b *testing.B) {
	data := make([]byte, 1<<20)
	rand.New(rand.NewSource(3)).Read(data)

	for _, p := range []ctph.Precision{8, 32, 64} {
		b.Run(p.String(), func(b *testing.B) {
			h := mustNew(b, 64, 16, p)
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				h.Compute(data)
			}
		})
	}
}
