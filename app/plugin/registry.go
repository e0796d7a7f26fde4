package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"thebridge/app/settings"
)

// ManifestFile is the manifest name looked up in a plugin directory.
const ManifestFile = "plugin.yml"

// Info is a loaded plugin
type Info struct {
	Config   settings.PluginConfig `json:"config"`
	Manifest Manifest              `json:"manifest"`
	ExecPath string                `json:"execPath"` // Resolved absolute path to executable
}

// Registry maps file extensions to external loaders
type Registry struct {
	mu      sync.RWMutex
	plugins map[string][]*Info // lowercase extension → plugins
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string][]*Info)}
}

// Load replaces the registry contents with the enabled plugins of configs.
// Plugins that fail validation are skipped and reported together.
func (r *Registry) Load(configs []settings.PluginConfig) error {
	plugins := make(map[string][]*Info)
	var loadErrors []string

	for _, config := range configs {
		if !config.Enabled {
			continue
		}
		info, err := resolve(config)
		if err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("plugin %s: %v", config.Name, err))
			continue
		}
		// multiple plugins may claim the same extension
		for _, ext := range info.Manifest.Extensions {
			extLower := strings.ToLower(ext)
			plugins[extLower] = append(plugins[extLower], info)
		}
	}

	r.mu.Lock()
	r.plugins = plugins
	r.mu.Unlock()

	if len(loadErrors) > 0 {
		return fmt.Errorf("plugin loading errors:\n  - %s", strings.Join(loadErrors, "\n  - "))
	}
	return nil
}

// Validate checks the plugin at path without registering it
func Validate(path string) (*Manifest, error) {
	info, err := resolve(settings.PluginConfig{Path: path})
	if err != nil {
		return nil, err
	}
	return &info.Manifest, nil
}

// resolve reads the manifest and locates the executable. path may be the
// plugin directory, its manifest or the executable itself.
func resolve(config settings.PluginConfig) (*Info, error) {
	if config.Path == "" {
		return nil, errors.New("plugin path is empty")
	}
	stat, err := os.Stat(config.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path does not exist: %s", config.Path)
		}
		return nil, fmt.Errorf("cannot access path: %v", err)
	}

	pluginDir, execPath := config.Path, ""
	if !stat.IsDir() {
		pluginDir = filepath.Dir(config.Path)
		if name := filepath.Base(config.Path); name != ManifestFile && name != "plugin.yaml" {
			execPath = config.Path
		}
	}

	manifest, err := readManifest(filepath.Join(pluginDir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %v", err)
	}
	if execPath == "" {
		execPath = manifest.Executable
		if !filepath.IsAbs(execPath) {
			execPath = filepath.Clean(filepath.Join(pluginDir, execPath))
		}
	}
	if err := validateExecutable(execPath); err != nil {
		return nil, err
	}
	return &Info{Config: config, Manifest: *manifest, ExecPath: execPath}, nil
}

func readManifest(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s not found at %s", ManifestFile, manifestPath)
		}
		return nil, fmt.Errorf("cannot read manifest: %v", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid YAML: %v", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func validateExecutable(execPath string) error {
	info, err := os.Stat(execPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("executable not found: %s", execPath)
		}
		return fmt.Errorf("cannot access executable: %v", err)
	}
	if info.IsDir() {
		return fmt.Errorf("executable is a directory: %s", execPath)
	}
	if info.Mode()&0111 == 0 {
		return fmt.Errorf("executable does not have execute permission: %s", execPath)
	}
	return nil
}

// ForExtension returns the first plugin registered for ext, case-insensitive
func (r *Registry) ForExtension(ext string) (*Info, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	plugins := r.plugins[strings.ToLower(ext)]
	if len(plugins) == 0 {
		return nil, false
	}
	return plugins[0], true
}

// ByID returns the plugin with the given manifest ID
func (r *Registry) ByID(id string) (*Info, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, plugins := range r.plugins {
		for _, p := range plugins {
			if p.Manifest.ID == id {
				return p, true
			}
		}
	}
	return nil, false
}

// List returns every registered plugin once, sorted by name
func (r *Registry) List() []*Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []*Info
	for _, plugins := range r.plugins {
		for _, p := range plugins {
			if !seen[p.Manifest.ID] {
				seen[p.Manifest.ID] = true
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// Extensions returns the lowercase extensions claimed by plugins, sorted
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.plugins))
	for ext := range r.plugins {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
