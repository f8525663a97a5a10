package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Type represents the compression algorithm
type Type int

const (
	None Type = iota
	Gzip
	Zstd
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps a config name to a Type. "auto" is resolved by the caller
// through Detect, so it is not accepted here.
func ParseType(name string) (Type, error) {
	switch name {
	case "none", "":
		return None, nil
	case "gzip":
		return Gzip, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unsupported compression type: %q", name)
	}
}

// Detect identifies the compression of data by its magic bytes.
func Detect(data []byte) Type {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	default:
		return None
	}
}

// Compressor handles data compression. Compress and Decompress are safe for
// concurrent use.
type Compressor struct {
	compressionType Type
	level           int
	zstdEncoder     *zstd.Encoder
	zstdDecoder     *zstd.Decoder
}

// NewCompressor creates a new compressor
func NewCompressor(t Type, level int) (*Compressor, error) {
	c := &Compressor{
		compressionType: t,
		level:           level,
	}

	if t == Zstd {
		var err error
		c.zstdEncoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		c.zstdDecoder, err = zstd.NewReader(nil)
		if err != nil {
			c.zstdEncoder.Close()
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	return c, nil
}

func (c *Compressor) Type() Type {
	return c.compressionType
}

// Compress compresses data
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	switch c.compressionType {
	case None:
		return data, nil
	case Gzip:
		return c.compressGzip(data)
	case Zstd:
		return c.zstdEncoder.EncodeAll(data, make([]byte, 0, len(data))), nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", c.compressionType)
	}
}

// Decompress decompresses data
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	switch c.compressionType {
	case None:
		return data, nil
	case Gzip:
		return Decompress(bytes.NewReader(data), Gzip, 0)
	case Zstd:
		decompressed, err := c.zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress zstd data: %w", err)
		}
		return decompressed, nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", c.compressionType)
	}
}

func (c *Compressor) compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to write compressed data: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Close releases resources
func (c *Compressor) Close() error {
	if c.zstdDecoder != nil {
		c.zstdDecoder.Close()
	}
	if c.zstdEncoder != nil {
		return c.zstdEncoder.Close()
	}
	return nil
}

// DefaultCompressor returns a default zstd compressor
func DefaultCompressor() (*Compressor, error) {
	return NewCompressor(Zstd, 3)
}

// Decompress reads all of r through a decoder for t. A positive limit caps the
// decompressed size; exceeding it returns ErrTooLarge.
func Decompress(r io.Reader, t Type, limit int64) ([]byte, error) {
	var src io.Reader
	switch t {
	case None:
		src = r
	case Gzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gr.Close()
		src = gr
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer zr.Close()
		src = zr
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", t)
	}

	if limit > 0 {
		src = io.LimitReader(src, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s data: %w", t, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// ErrTooLarge is returned by Decompress when output exceeds its limit.
var ErrTooLarge = errors.New("decompressed data exceeds limit")
