package fileloader

import (
	"path/filepath"
	"strings"
)

// compressionExtensions maps compression extensions to their CompressionType
var compressionExtensions = map[string]CompressionType{
	".gz":  CompressionGzip,
	".bz2": CompressionBzip2,
	".xz":  CompressionXZ,
	".lz4": CompressionLZ4,
}

// DetectFileTypeAndCompression determines both the file type and compression
// type from the extension. Files without a compression extension are checked
// for compression magic bytes; their inner type still comes from the name.
func DetectFileTypeAndCompression(filePath string) (FileType, CompressionType) {
	if filePath == "" {
		return FileTypeUnknown, CompressionNone
	}

	lower := strings.ToLower(filePath)
	compressionType := CompressionNone
	innerPath := lower

	ext := filepath.Ext(lower)
	if ct, ok := compressionExtensions[ext]; ok {
		compressionType = ct
		innerPath = strings.TrimSuffix(lower, ext)
	} else if magicType, err := DetectCompressionByMagic(filePath); err == nil {
		compressionType = magicType
	}

	return detectFileTypeFromPath(innerPath), compressionType
}

// detectFileTypeFromPath determines file type from a path (without compression extension)
func detectFileTypeFromPath(path string) FileType {
	switch filepath.Ext(path) {
	case ".csv", ".txt":
		return FileTypeCSV
	case ".tsv", ".tab":
		return FileTypeTSV
	case ".xlsx", ".xlsm":
		return FileTypeXLSX
	case ".json":
		return FileTypeJSON
	case ".ndjson", ".jsonl":
		return FileTypeNDJSON
	}
	return FileTypeUnknown
}

// GetUncompressedExtension returns the file extension without compression suffix
// e.g., "data.csv.gz" -> ".csv", "data.json.bz2" -> ".json"
func GetUncompressedExtension(filePath string) string {
	lower := strings.ToLower(filePath)
	if ext := filepath.Ext(lower); compressionExtensions[ext] != CompressionNone {
		lower = strings.TrimSuffix(lower, ext)
	}
	return filepath.Ext(lower)
}
