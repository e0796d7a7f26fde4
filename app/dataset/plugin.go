package dataset

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"thebridge/app/fileloader"
	"thebridge/app/fingerprint"
	"thebridge/app/interfaces"
	"thebridge/app/plugin"
)

// PluginProvider loads a file through an external loader that renders it
// as CSV on stdout.
type PluginProvider struct {
	Path    string
	Plugin  *plugin.Info
	Options interfaces.FileOptions
}

// Describe returns the path and the plugin name.
func (p *PluginProvider) Describe() string {
	return fmt.Sprintf("%s (via %s)", p.Path, p.Plugin.Manifest.Name)
}

// Load runs the plugin and parses its output.
func (p *PluginProvider) Load(ctx context.Context) (*Dataset, error) {
	output, err := plugin.NewExecutor(p.Plugin).Stream(ctx, p.Path)
	if err != nil {
		return nil, err
	}

	opts := p.Options
	if opts.Delimiter == "" {
		opts.Delimiter = ","
	}
	data, err := fileloader.Parse(output, fileloader.FileTypeCSV, opts)
	if err != nil {
		return nil, fmt.Errorf("plugin %s returned invalid CSV: %w", p.Plugin.Manifest.Name, err)
	}

	d := &Dataset{
		Header: data.Header,
		Rows:   data.Rows,
		Source: p.Path,
		Kind:   "plugin:" + p.Plugin.Manifest.Name,
		Files:  1,
	}
	if err := validate(d); err != nil {
		return nil, err
	}
	d.Hash = fingerprint.Strings([]string{fingerprint.String(string(output)), p.Plugin.Manifest.ID, p.Options.Key()}, "::")

	log.Printf("[LOAD] %s via plugin %s: %d rows, %d columns", p.Path, p.Plugin.Manifest.Name, len(d.Rows), len(d.Header))
	return d, nil
}

// ForPath picks the provider for path: the plugin named by the options,
// then the built-in readers, then a plugin claiming the extension.
func ForPath(path string, options interfaces.FileOptions, limits fileloader.Limits, plugins *plugin.Registry) (Provider, error) {
	if options.PluginID != "" {
		info, ok := plugins.ByID(options.PluginID)
		if !ok {
			return nil, fmt.Errorf("plugin %s is not registered", options.PluginID)
		}
		return &PluginProvider{Path: path, Plugin: info, Options: options}, nil
	}
	if !options.IsDirectory && !fileloader.IsDirectory(path) {
		if fileType, _ := fileloader.DetectFileTypeAndCompression(path); fileType == fileloader.FileTypeUnknown {
			if info, ok := plugins.ForExtension(filepath.Ext(path)); ok {
				return &PluginProvider{Path: path, Plugin: info, Options: options}, nil
			}
		}
	}
	return NewFileProvider(path, options, limits), nil
}
