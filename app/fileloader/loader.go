package fileloader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"thebridge/app/interfaces"
)

// Limits bounds what Load will read.
type Limits struct {
	MaxDirectoryFiles int // 0 = unlimited
}

// Load reads the file or directory at path into memory. The file type comes
// from the extension (after any compression suffix), compression from the
// extension or the magic bytes.
func Load(ctx context.Context, path string, options FileOptions) (*Result, error) {
	return LoadWithLimits(ctx, path, options, Limits{})
}

// LoadWithLimits is Load with explicit limits.
func LoadWithLimits(ctx context.Context, path string, options FileOptions, limits Limits) (*Result, error) {
	if path == "" {
		return nil, fmt.Errorf("file path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if options.IsDirectory || IsDirectory(path) {
		info, err := DiscoverFiles(path, DirectoryDiscoveryOptions{
			Pattern:  options.FilePattern,
			MaxFiles: limits.MaxDirectoryFiles,
		})
		if err != nil {
			return nil, err
		}
		t, warnings, err := loadDirectory(ctx, info, options)
		if err != nil {
			return nil, err
		}
		if info.Truncated() {
			warnings = append(warnings, fmt.Sprintf("Only the first %d of %d matching files were loaded.", len(info.Files), info.TotalFiles))
		}
		fileType, _ := DetectFileTypeAndCompression(info.Files[0])
		return &Result{
			Data:     t.toStageResult(),
			FileType: fileType,
			Files:    len(info.Files),
			Warning:  strings.Join(warnings, " "),
		}, nil
	}

	t, fileType, warning, compression, err := loadSingle(path, options)
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:        t.toStageResult(),
		FileType:    fileType,
		Compression: compression,
		Files:       1,
		Warning:     warning,
	}, nil
}

// loadFile reads one file of a directory load.
func loadFile(path string, options FileOptions) (*table, FileType, string, error) {
	t, fileType, warning, _, err := loadSingle(path, options)
	return t, fileType, warning, err
}

func loadSingle(path string, options FileOptions) (*table, FileType, string, CompressionType, error) {
	fileType, compression := DetectFileTypeAndCompression(path)
	if fileType == FileTypeUnknown {
		return nil, fileType, "", compression, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}

	raw, err := DecompressFile(path, compression)
	if err != nil {
		return nil, fileType, "", compression, err
	}
	t, err := parse(raw.Data, fileType, options)
	if err != nil {
		return nil, fileType, "", compression, err
	}
	return t, fileType, raw.Warning, compression, nil
}

// Parse reads already decompressed data of the given type, as for an
// uploaded file.
func Parse(data []byte, fileType FileType, options FileOptions) (*interfaces.StageResult, error) {
	t, err := parse(data, fileType, options)
	if err != nil {
		return nil, err
	}
	return t.toStageResult(), nil
}

func parse(data []byte, fileType FileType, options FileOptions) (*table, error) {
	switch fileType {
	case FileTypeCSV, FileTypeTSV:
		return readCSV(data, fileType, options)
	case FileTypeXLSX:
		return readXLSX(data, options)
	case FileTypeJSON, FileTypeNDJSON:
		return readJSON(data, fileType, options)
	}
	return nil, ErrUnsupportedFile
}
