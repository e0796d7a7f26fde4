package fileloader

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// CompressionType represents the compression format of a file
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
	CompressionLZ4
)

// String returns the string representation of CompressionType
func (ct CompressionType) String() string {
	switch ct {
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// Magic byte signatures for compression detection
var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{0x42, 0x5a, 0x68}                   // "BZh"
	xzMagic    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
	lz4Magic   = []byte{0x04, 0x22, 0x4d, 0x18} // frame format
)

// compressionFromMagic matches header against the known signatures.
func compressionFromMagic(header []byte) CompressionType {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(header, bzip2Magic):
		return CompressionBzip2
	case bytes.HasPrefix(header, xzMagic):
		return CompressionXZ
	case bytes.HasPrefix(header, lz4Magic):
		return CompressionLZ4
	}
	return CompressionNone
}

// DetectCompressionByMagic reads the first few bytes of a file and detects compression type
func DetectCompressionByMagic(filePath string) (CompressionType, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return CompressionNone, err
	}
	defer f.Close()

	// XZ has the longest magic (6 bytes)
	header := make([]byte, 6)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return CompressionNone, err
	}
	return compressionFromMagic(header[:n]), nil
}

// DecompressionResult contains the decompressed data and any warning
type DecompressionResult struct {
	Data    []byte
	Warning string // Non-empty if decompression was incomplete
}

// Decompress reads r through the decompressor for compressionType. If
// decompression fails mid-stream, the partial data is returned with a warning.
func Decompress(r io.Reader, compressionType CompressionType) (*DecompressionResult, error) {
	var reader io.Reader
	switch compressionType {
	case CompressionNone:
		reader = r
	case CompressionGzip:
		gzReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	case CompressionBzip2:
		reader = bzip2.NewReader(r)
	case CompressionXZ:
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		reader = xzReader
	case CompressionLZ4:
		reader = lz4.NewReader(r)
	default:
		return nil, fmt.Errorf("unsupported compression type: %v", compressionType)
	}

	var buf bytes.Buffer
	_, err := io.Copy(&buf, reader)
	result := &DecompressionResult{Data: buf.Bytes()}
	if err != nil {
		if len(result.Data) == 0 {
			return nil, fmt.Errorf("decompression failed: %w", err)
		}
		result.Warning = fmt.Sprintf("Decompression incomplete: %v. Some data may be missing.", err)
	}
	return result, nil
}

// DecompressFile reads a possibly compressed file fully into memory.
func DecompressFile(filePath string, compressionType CompressionType) (*DecompressionResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decompress(f, compressionType)
}
