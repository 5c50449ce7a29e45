package sink

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
)

// Compression selects the algorithm applied to rotated files.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionGzip   Compression = "gzip"
	CompressionSnappy Compression = "snappy"
)

// Compressor interface for compression implementations
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// GetCompressor returns a compressor for the specified type
func GetCompressor(compression Compression) (Compressor, error) {
	switch compression {
	case CompressionNone, "":
		return &NoneCompressor{}, nil
	case CompressionGzip:
		return &GzipCompressor{}, nil
	case CompressionSnappy:
		return &SnappyCompressor{}, nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compression)
	}
}

// compressedExt returns the filename suffix for the compression type.
func compressedExt(compression Compression) string {
	switch compression {
	case CompressionGzip:
		return ".gz"
	case CompressionSnappy:
		return ".sz"
	default:
		return ""
	}
}

// compressFile replaces path with a compressed sibling (path + suffix).
func compressFile(path string, compression Compression) error {
	compressor, err := GetCompressor(compression)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rotated file: %w", err)
	}

	compressed, err := compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("failed to compress rotated file: %w", err)
	}

	target := path + compressedExt(compression)
	if err := os.WriteFile(target, compressed, 0644); err != nil {
		return fmt.Errorf("failed to write compressed file: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove uncompressed file: %w", err)
	}

	return nil
}

// NoneCompressor performs no compression
type NoneCompressor struct{}

func (c *NoneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (c *NoneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

// GzipCompressor uses gzip compression
type GzipCompressor struct{}

func (c *GzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write failed: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip close failed: %w", err)
	}

	return buf.Bytes(), nil
}

func (c *GzipCompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader creation failed: %w", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gzip read failed: %w", err)
	}

	return decompressed, nil
}

// SnappyCompressor uses snappy compression
type SnappyCompressor struct{}

func (c *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (c *SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode failed: %w", err)
	}
	return decompressed, nil
}
