// Package input reads documents for hashing: raw or compressed bytes from
// files or stdin, and token-id sequences stored as JSON.
package input

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/hoangsonww/fuzzyhash/internal/compression"
	fherrors "github.com/hoangsonww/fuzzyhash/internal/errors"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// Reader reads documents with a fixed decompression mode and size limit.
// A zero MaxSize means no limit.
type Reader struct {
	Mode    string // "auto", "none", "gzip" or "zstd"
	MaxSize int64

	stdin io.Reader
}

func NewReader(mode string, maxSize int64) *Reader {
	return &Reader{Mode: mode, MaxSize: maxSize, stdin: os.Stdin}
}

// WithStdin returns a copy of r that reads r's Stdin path from in.
func (r *Reader) WithStdin(in io.Reader) *Reader {
	c := *r
	c.stdin = in
	return &c
}

// ReadFile returns the decompressed content of path, or of stdin for "-".
func (r *Reader) ReadFile(path string) ([]byte, error) {
	if path == Stdin {
		return r.Read(r.stdin, "stdin")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fherrors.NewInputReadError(path, err)
	}
	defer f.Close()

	if r.MaxSize > 0 && r.mode() == "none" {
		if info, err := f.Stat(); err == nil && info.Mode().IsRegular() && info.Size() > r.MaxSize {
			return nil, tooLarge(path, r.MaxSize)
		}
	}
	return r.Read(f, path)
}

// Read decompresses everything from src. name labels errors.
func (r *Reader) Read(src io.Reader, name string) ([]byte, error) {
	br := bufio.NewReader(src)

	var typ compression.Type
	switch mode := r.mode(); mode {
	case "auto":
		head, err := br.Peek(4)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fherrors.NewInputReadError(name, err)
		}
		typ = compression.Detect(head)
	default:
		t, err := compression.ParseType(mode)
		if err != nil {
			return nil, fherrors.WrapError(fherrors.ErrCodeConfigInvalid, "invalid decompression mode", err)
		}
		typ = t
	}

	data, err := compression.Decompress(br, typ, r.MaxSize)
	switch {
	case errors.Is(err, compression.ErrTooLarge):
		return nil, tooLarge(name, r.MaxSize)
	case err != nil && typ == compression.None:
		return nil, fherrors.NewInputReadError(name, err)
	case err != nil:
		return nil, fherrors.NewDecompressionError(name, err)
	}
	return data, nil
}

func (r *Reader) mode() string {
	if r.Mode == "" {
		return "auto"
	}
	return r.Mode
}

func tooLarge(name string, limit int64) error {
	return fherrors.NewError(fherrors.ErrCodeInputTooLarge,
		fmt.Sprintf("%s exceeds the input size limit of %d bytes", name, limit))
}

// ReadTokens reads path through r and parses it with ParseTokens.
func (r *Reader) ReadTokens(path string) ([]int64, error) {
	data, err := r.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tokens, err := ParseTokens(data)
	if err != nil {
		return nil, fherrors.WrapError(fherrors.ErrCodeInvalidTokens, fmt.Sprintf("invalid token file %s", path), err)
	}
	return tokens, nil
}

// ParseTokens accepts either one JSON array of integers or JSON Lines where
// every non-blank line is such an array. JSONL sequences are concatenated in
// line order.
func ParseTokens(data []byte) ([]int64, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("no tokens")
	}

	var tokens []int64
	if err := json.Unmarshal(trimmed, &tokens); err == nil {
		return tokens, nil
	}

	tokens = tokens[:0]
	for n, line := range bytes.Split(trimmed, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var seq []int64
		if err := json.Unmarshal(line, &seq); err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		tokens = append(tokens, seq...)
	}
	return tokens, nil
}
