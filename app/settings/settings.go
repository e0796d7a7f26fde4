package settings

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsFileName is the YAML file read from the executable's directory.
const SettingsFileName = "thebridge.yml"

// settingsFilePath is a variable so tests can point it at a temp dir.
var settingsFilePath = func() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(exe)
	return filepath.Join(dir, SettingsFileName), nil
}

// GetEffectiveSettings returns the effective settings (defaults overlaid with file overrides if any).
// If anything goes wrong, it returns defaults.
func GetEffectiveSettings() Settings {
	settings := Defaults()
	path, err := settingsFilePath()
	if err != nil {
		return settings
	}
	if _, err := os.Stat(path); err != nil {
		// no file or other stat error -> return defaults
		return settings
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return settings
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return settings
	}
	overlay(&settings, m)
	return settings
}

// ResolvePath resolves a settings-relative path against the executable's directory.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	path, err := settingsFilePath()
	if err != nil {
		return p
	}
	return filepath.Join(filepath.Dir(path), p)
}

// overlay applies the keys present in m onto settings. A generic map is used
// so explicit false/0 overrides are distinguishable from absent keys.
func overlay(settings *Settings, m map[string]any) {
	if v, ok := m["enable_query_cache"]; ok {
		if vb, okb := v.(bool); okb {
			settings.EnableQueryCache = vb
		}
	}
	if v, ok := m["cache_size_limit_mb"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.CacheSizeLimitMB = vi
		}
	}
	if v, ok := m["categorical_threshold"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.CategoricalThreshold = vi
		}
	}
	if v, ok := m["date_sample_size"]; ok {
		if vi, oki := v.(int); oki && vi > 0 {
			settings.DateSampleSize = vi
		}
	}
	if v, ok := m["date_majority"]; ok {
		switch vf := v.(type) {
		case float64:
			if vf > 0 && vf <= 1 {
				settings.DateMajority = vf
			}
		case int:
			if vf == 1 {
				settings.DateMajority = 1
			}
		}
	}
	if v, ok := m["debounce_ms"]; ok {
		if vi, oki := v.(int); oki && vi >= 0 {
			settings.DebounceMs = vi
		}
	}
	if v, ok := m["display_timezone"]; ok {
		if vs, oks := v.(string); oks {
			settings.DisplayTimezone = vs
		}
	}
	if v, ok := m["presets_file"]; ok {
		if vs, oks := v.(string); oks && vs != "" {
			settings.PresetsFile = vs
		}
	}
	if v, ok := m["max_directory_files"]; ok {
		if vi, oki := v.(int); oki && vi >= 10 {
			settings.MaxDirectoryFiles = vi
		}
	}
	if v, ok := m["http_addr"]; ok {
		if vs, oks := v.(string); oks {
			settings.HTTPAddr = vs
		}
	}
	if v, ok := m["allowed_origins"]; ok {
		if arr, oka := v.([]any); oka {
			origins := make([]string, 0, len(arr))
			for _, o := range arr {
				if s, ok := o.(string); ok {
					origins = append(origins, s)
				}
			}
			settings.AllowedOrigins = origins
		}
	}
	if v, ok := m["plugins"]; ok {
		if arr, oka := v.([]any); oka {
			plugins := make([]PluginConfig, 0, len(arr))
			for _, item := range arr {
				pm, okm := item.(map[string]any)
				if !okm {
					continue
				}
				pc := PluginConfig{Enabled: true}
				pc.Name, _ = pm["name"].(string)
				pc.Path, _ = pm["path"].(string)
				if enabled, okb := pm["enabled"].(bool); okb {
					pc.Enabled = enabled
				}
				if pc.Path != "" {
					pc.Path = ResolvePath(pc.Path)
					plugins = append(plugins, pc)
				}
			}
			settings.Plugins = plugins
		}
	}
	if v, ok := m["window_width"]; ok {
		if vi, oki := v.(int); oki && vi >= 400 {
			settings.WindowWidth = vi
		}
	}
	if v, ok := m["window_height"]; ok {
		if vi, oki := v.(int); oki && vi >= 300 {
			settings.WindowHeight = vi
		}
	}
}
