package input

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hoangsonww/fuzzyhash/internal/compression"
	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func compress(t *testing.T, typ compression.Type, data []byte) []byte {
	t.Helper()
	c, err := compression.NewCompressor(typ, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	out, err := c.Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestReadFileAutoDetect(t *testing.T) {
	plain := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog\n", 50))

	tests := []struct {
		name string
		data []byte
	}{
		{"plain", plain},
		{"gzip", compress(t, compression.Gzip, plain)},
		{"zstd", compress(t, compression.Zstd, plain)},
	}

	r := NewReader("auto", 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ReadFile(writeFile(t, "doc", tt.data))
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if !bytes.Equal(got, plain) {
				t.Error("content mismatch")
			}
		})
	}
}

func TestReadFileForcedMode(t *testing.T) {
	plain := []byte("hello world")
	gz := compress(t, compression.Gzip, plain)

	got, err := NewReader("none", 0).ReadFile(writeFile(t, "doc.gz", gz))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, gz) {
		t.Error("mode none must return raw bytes")
	}

	_, err = NewReader("zstd", 0).ReadFile(writeFile(t, "doc", plain))
	if fherrors.GetErrorCode(err) != fherrors.ErrCodeDecompressionFailed {
		t.Errorf("expected DECOMPRESSION_FAILED, got %v", err)
	}
}

func TestReadFileShortInput(t *testing.T) {
	r := NewReader("auto", 0)
	for _, data := range [][]byte{nil, {'a'}} {
		got, err := r.ReadFile(writeFile(t, "short", data))
		if err != nil || !bytes.Equal(got, data) {
			t.Errorf("%q: expected raw content, got %q, %v", data, got, err)
		}
	}

	// Bare gzip magic is detected, then fails to decode.
	_, err := r.ReadFile(writeFile(t, "magic", []byte{0x1f, 0x8b}))
	if fherrors.GetErrorCode(err) != fherrors.ErrCodeDecompressionFailed {
		t.Errorf("expected DECOMPRESSION_FAILED, got %v", err)
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := NewReader("auto", 0).ReadFile(filepath.Join(t.TempDir(), "missing"))
	if fherrors.GetErrorCode(err) != fherrors.ErrCodeInputReadFailed {
		t.Errorf("expected INPUT_READ_FAILED, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestReadFileLimit(t *testing.T) {
	data := make([]byte, 100)

	for _, mode := range []string{"none", "auto"} {
		_, err := NewReader(mode, 99).ReadFile(writeFile(t, "big", data))
		if fherrors.GetErrorCode(err) != fherrors.ErrCodeInputTooLarge {
			t.Errorf("mode %s: expected INPUT_TOO_LARGE, got %v", mode, err)
		}
		if got, err := NewReader(mode, 100).ReadFile(writeFile(t, "fits", data)); err != nil || len(got) != 100 {
			t.Errorf("mode %s: expected 100 bytes, got %d, %v", mode, len(got), err)
		}
	}

	// The limit applies to decompressed size.
	gz := compress(t, compression.Gzip, make([]byte, 10000))
	_, err := NewReader("auto", 5000).ReadFile(writeFile(t, "bomb.gz", gz))
	if fherrors.GetErrorCode(err) != fherrors.ErrCodeInputTooLarge {
		t.Errorf("expected INPUT_TOO_LARGE for expanded gzip, got %v", err)
	}
}

func TestReadStdin(t *testing.T) {
	r := NewReader("auto", 0).WithStdin(strings.NewReader("from stdin"))
	got, err := r.ReadFile(Stdin)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "from stdin" {
		t.Errorf("expected stdin content, got %q", got)
	}
}

func TestParseTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []int64
	}{
		{"array", "[1, 2, 3]", []int64{1, 2, 3}},
		{"multiline array", "[\n  1,\n  2\n]\n", []int64{1, 2}},
		{"jsonl", "[1, 2]\n[3]\n\n[4, 5]\n", []int64{1, 2, 3, 4, 5}},
		{"negative and large", "[-1, 9223372036854775807]", []int64{-1, 9223372036854775807}},
		{"empty array", "[]", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTokens([]byte(tt.in))
			if err != nil {
				t.Fatalf("ParseTokens: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}

	for _, bad := range []string{"", "   ", "{\"a\": 1}", "[1, \"x\"]", "[1]\nnope", "[1.5]"} {
		if _, err := ParseTokens([]byte(bad)); err == nil {
			t.Errorf("ParseTokens(%q): expected error", bad)
		}
	}
}

func TestReadTokens(t *testing.T) {
	r := NewReader("auto", 0)

	got, err := r.ReadTokens(writeFile(t, "tokens.json", []byte("[6153, 424, 24]")))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 6153 {
		t.Errorf("unexpected tokens %v", got)
	}

	gz := compress(t, compression.Gzip, []byte("[1,2]\n[3]\n"))
	got, err = r.ReadTokens(writeFile(t, "tokens.jsonl.gz", gz))
	if err != nil || len(got) != 3 {
		t.Errorf("expected 3 tokens from gzip JSONL, got %v, %v", got, err)
	}

	_, err = r.ReadTokens(writeFile(t, "bad.json", []byte("not json")))
	if !fherrors.IsUsageError(err) || fherrors.GetErrorCode(err) != fherrors.ErrCodeInvalidTokens {
		t.Errorf("expected INVALID_TOKENS, got %v", err)
	}
}
