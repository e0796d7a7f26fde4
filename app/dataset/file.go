package dataset

import (
	"context"
	"fmt"
	"log"

	"thebridge/app/fileloader"
	"thebridge/app/fingerprint"
	"thebridge/app/interfaces"
)

// FileProvider loads a file or directory through fileloader.
type FileProvider struct {
	Path    string
	Options interfaces.FileOptions
	Limits  fileloader.Limits
}

// NewFileProvider returns a provider for path.
func NewFileProvider(path string, options interfaces.FileOptions, limits fileloader.Limits) *FileProvider {
	return &FileProvider{Path: path, Options: options, Limits: limits}
}

// Describe returns the path.
func (p *FileProvider) Describe() string {
	return p.Path
}

// Load reads the file. The hash covers the raw file bytes and the load
// options, since the same bytes read with other options is another dataset.
// Directories are hashed by content.
func (p *FileProvider) Load(ctx context.Context) (*Dataset, error) {
	res, err := fileloader.LoadWithLimits(ctx, p.Path, p.Options, p.Limits)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", p.Path, err)
	}

	d := &Dataset{
		Header:  res.Data.Header,
		Rows:    res.Data.Rows,
		Source:  p.Path,
		Kind:    res.FileType.String(),
		Files:   res.Files,
		Warning: res.Warning,
	}
	if err := validate(d); err != nil {
		return nil, err
	}

	var contentHash string
	if res.Files == 1 && !fileloader.IsDirectory(p.Path) {
		contentHash, err = fingerprint.File(p.Path)
	} else {
		contentHash, err = HashContent(d.Header, d.Rows)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", p.Path, err)
	}
	d.Hash = fingerprint.Strings([]string{contentHash, p.Options.Key()}, "::")

	log.Printf("[LOAD] %s: %d rows, %d columns (%s, %s compression, %d file(s))",
		p.Path, len(d.Rows), len(d.Header), res.FileType, res.Compression, res.Files)
	return d, nil
}
