package ctph_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hoangsonww/fuzzyhash/internal/ctph"
)

func hashTokens(t *testing.T, tokens []int64, w, d int) string {
	t.Helper()
	got, err := ctph.HashTokens(tokens, w, d)
	if err != nil {
		t.Fatalf("HashTokens: %v", err)
	}
	return got
}

func TestTokenBasic(t *testing.T) {
	got := hashTokens(t, []int64{1, 2, 3, 4, 5}, 2, 4)
	if got != "2:4:65326dcffc99f67eb183b0f8795cac187670a5a683b51199" {
		t.Errorf("unexpected digest %q", got)
	}
}

func TestTokenEmpty(t *testing.T) {
	if got := hashTokens(t, nil, 2, 4); got != "2:4:" {
		t.Errorf("expected 2:4:, got %q", got)
	}
}

func TestTokenSingle(t *testing.T) {
	got := hashTokens(t, []int64{42}, 2, 4)
	if got != "2:4:fae624a6c2dcaa94" {
		t.Errorf("unexpected digest %q", got)
	}
}

func TestTokenCeilingHasNoMultiplier(t *testing.T) {
	// All-zero tokens never hit residue 1, so pieces are cut every w tokens.
	got := hashTokens(t, make([]int64, 7), 3, 2)
	if got != "3:2:db27f030ad8e467cdb27f030ad8e467c:71e0a99173564931" {
		t.Errorf("unexpected digest %q", got)
	}
	if got := hashTokens(t, make([]int64, 6), 3, 2); got != "3:2:db27f030ad8e467cdb27f030ad8e467c" {
		t.Errorf("unexpected aligned digest %q", got)
	}
}

func TestTokenValidation(t *testing.T) {
	if _, err := ctph.NewTokenHasher(0, 4); !errors.Is(err, ctph.ErrInvalidWindowSize) {
		t.Errorf("expected ErrInvalidWindowSize, got %v", err)
	}
	if _, err := ctph.NewTokenHasher(2, 0); !errors.Is(err, ctph.ErrInvalidDigestSize) {
		t.Errorf("expected ErrInvalidDigestSize, got %v", err)
	}
}

func TestTokenIdenticalSequences(t *testing.T) {
	a := hashTokens(t, []int64{1, 2, 3, 4, 5}, 2, 4)
	b := hashTokens(t, []int64{1, 2, 3, 4, 5}, 2, 4)
	if s := ctph.Similarity(a, b); s != 1.0 {
		t.Errorf("expected 1.0, got %v", s)
	}
}

func TestTokenDisjointSequences(t *testing.T) {
	a := hashTokens(t, []int64{1, 2, 3, 4, 5}, 2, 4)
	b := hashTokens(t, []int64{6, 7, 8, 9, 10}, 2, 4)
	if s := ctph.Similarity(a, b); s >= 0.5 {
		t.Errorf("expected similarity below 0.5, got %v", s)
	}
}

func TestTokenParameterMismatch(t *testing.T) {
	tokens := []int64{1, 2, 3, 4, 5}
	base := hashTokens(t, tokens, 2, 4)
	if s := ctph.Similarity(base, hashTokens(t, tokens, 3, 4)); s != 0 {
		t.Errorf("window mismatch: expected 0, got %v", s)
	}
	if s := ctph.Similarity(base, hashTokens(t, tokens, 2, 5)); s != 0 {
		t.Errorf("digest mismatch: expected 0, got %v", s)
	}
}

func TestTokenExtremeValues(t *testing.T) {
	got := hashTokens(t, []int64{math.MaxInt64, math.MinInt64, 0, -1}, 2, 4)
	if !strings.HasPrefix(got, "2:4:") || len(got) <= len("2:4:") {
		t.Errorf("unexpected digest %q", got)
	}
}

func TestTokenSimilarSentences(t *testing.T) {
	// Two tokenized paragraphs differing in a handful of tokens.
	tokens1 := []int64{6153, 424, 24, 300, 281, 17938, 295, 281, 1032, 922, 377, 300,
		281, 45261, 24, 2413, 24, 377, 38148, 295, 4639, 3184, 54456, 310, 2899,
		295, 281, 1032, 922, 1171, 9018, 377, 777, 4845, 281, 1974, 1412, 15118,
		295, 2507, 16228, 1228, 3156, 1974, 735, 517, 1727, 15549, 377, 35233,
		4757, 1663, 18640, 24, 15549, 377, 35233, 4757, 3999, 3757, 24, 377,
		15549, 377, 35233, 284, 519, 280, 295, 4757, 7873, 4305, 295, 37043,
		334, 3778, 674, 295, 281, 10603, 11940, 1431, 4899, 643, 7500, 300,
		270, 2979, 2781, 377, 965, 18880, 7369, 24, 300, 6344, 377, 300, 1173,
		440, 281, 1285, 295, 281, 3238, 295, 3504, 1184, 475, 517, 10023, 295,
		281, 1032, 922, 26}
	tokens2 := []int64{6153, 424, 24, 300, 281, 17938, 295, 281, 1032, 922, 377, 300,
		281, 45261, 24, 2413, 24, 377, 38148, 295, 4639, 3184, 54456, 310, 2899,
		295, 281, 1032, 922, 1171, 9018, 377, 777, 4845, 281, 1974, 1412, 15118,
		295, 2507, 16228, 1228, 3156, 23805, 735, 517, 1727, 15549, 377, 35233,
		4757, 1663, 18640, 24, 61109, 82, 11114, 377, 35233, 4757, 3999, 3757,
		24, 377, 15549, 377, 35233, 284, 519, 280, 295, 4757, 7873, 4305, 295,
		37043, 334, 3778, 674, 295, 281, 10603, 11940, 1431, 4899, 643, 7500,
		300, 270, 2979, 2781, 377, 965, 18880, 7369, 24, 300, 6344, 377, 300,
		1173, 440, 281, 1285, 295, 281, 3238, 295, 3504, 1184, 475, 517, 10023,
		295, 281, 1032, 922, 26}

	s := ctph.Similarity(hashTokens(t, tokens1, 4, 8), hashTokens(t, tokens2, 4, 8))
	if math.Abs(s-1.0/9.0) > 1e-12 {
		t.Errorf("expected 1/9, got %v", s)
	}
}

func TestTokenSubsequence(t *testing.T) {
	a := hashTokens(t, []int64{1, 2, 3, 4, 5}, 2, 2)
	b := hashTokens(t, []int64{0, 2, 2, 6, 1, 2, 3, 4, 5, 6, 7}, 2, 2)
	if s := ctph.Similarity(a, b); s != 0.25 {
		t.Errorf("expected 0.25, got %v", s)
	}
}

func TestTokenStream(t *testing.T) {
	h, err := ctph.NewTokenHasher(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	s := h.NewStream()
	s.Append(1, 2)
	s.Append(3)
	if got, want := s.Digest().String(), h.Compute([]int64{1, 2, 3}); got != want {
		t.Fatalf("expected prefix digest %q, got %q", want, got)
	}
	s.Append(4, 5)
	if got, want := s.Digest().String(), h.Compute([]int64{1, 2, 3, 4, 5}); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if s.Len() != 5 {
		t.Errorf("expected 5 tokens consumed, got %d", s.Len())
	}
}

func TestTokenStreamReset(t *testing.T) {
	h, err := ctph.NewTokenHasher(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	s := h.NewStream()
	s.Append(9, 8, 7, 6, 5, 4, 3, 2, 1)
	s.Reset()
	s.Append(1, 2, 3)
	if got, want := s.Digest().String(), h.Compute([]int64{1, 2, 3}); got != want {
		t.Fatalf("expected %q after Reset, got %q", want, got)
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 tokens consumed, got %d", s.Len())
	}

	// Compute draws from the same pool of streams; earlier input must not leak.
	first := h.Compute([]int64{5, 6, 7, 8, 9, 10})
	if got := h.Compute([]int64{5, 6, 7, 8, 9, 10}); got != first {
		t.Errorf("repeated Compute differs: %q vs %q", first, got)
	}
}
