package settings

// Settings holds application settings that can be overridden by the user.
type Settings struct {
	// Remove omitempty so that false is serialized (we need to persist explicit overrides)
	EnableQueryCache bool `yaml:"enable_query_cache" json:"enable_query_cache"`
	// Cache size limit in MB for the query result cache
	CacheSizeLimitMB int `yaml:"cache_size_limit_mb" json:"cache_size_limit_mb"`
	// A column is categorical once any single value repeats more than this many times
	CategoricalThreshold int `yaml:"categorical_threshold" json:"categorical_threshold"`
	// Number of non-empty values sampled per column during type detection
	DateSampleSize int `yaml:"date_sample_size" json:"date_sample_size"`
	// Fraction of sampled values that must parse as dates for a date column
	DateMajority float64 `yaml:"date_majority" json:"date_majority"`
	// Debounce window for recomputing results after filter edits
	DebounceMs int `yaml:"debounce_ms" json:"debounce_ms"`
	// Timezone TODAY expressions are resolved in.
	// Examples: "Local" (system local), "UTC", or any IANA TZ like "Europe/Madrid"
	DisplayTimezone string `yaml:"display_timezone" json:"display_timezone"`
	// Presets file; relative paths resolve next to the executable
	PresetsFile string `yaml:"presets_file" json:"presets_file"`
	// Maximum number of files when loading a directory as one dataset
	MaxDirectoryFiles int `yaml:"max_directory_files" json:"max_directory_files"`
	// Headless HTTP API listen address, disabled when empty
	HTTPAddr       string   `yaml:"http_addr,omitempty" json:"http_addr,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" json:"allowed_origins,omitempty"`
	// External loaders for formats the built-in readers do not handle
	Plugins []PluginConfig `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	// Window size settings (not visible in settings dialog, but persisted)
	WindowWidth  int `yaml:"window_width,omitempty" json:"window_width,omitempty"`
	WindowHeight int `yaml:"window_height,omitempty" json:"window_height,omitempty"`
}

// PluginConfig points at a plugin directory, its plugin.yml or its executable.
type PluginConfig struct {
	Name    string `yaml:"name" json:"name"`
	Path    string `yaml:"path" json:"path"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// CacheManager interface defines methods that SettingsService needs for cache management
// This breaks the circular dependency between app and settings packages
type CacheManager interface {
	ClearQueryCache()
	UpdateCacheSize()
}

// defaultSettings defines the built-in defaults.
var defaultSettings = Settings{
	EnableQueryCache:     true,
	CacheSizeLimitMB:     100,
	CategoricalThreshold: 30,
	DateSampleSize:       100,
	DateMajority:         0.5,
	DebounceMs:           200,
	DisplayTimezone:      "Local",
	PresetsFile:          "thebridge-presets.yml",
	MaxDirectoryFiles:    500,
	AllowedOrigins:       []string{"http://localhost:3000", "http://127.0.0.1:3000"},
	// Default window size (matches main.go defaults)
	WindowWidth:  1024,
	WindowHeight: 768,
}

// Defaults returns a copy of the built-in defaults.
func Defaults() Settings {
	s := defaultSettings
	s.AllowedOrigins = append([]string(nil), defaultSettings.AllowedOrigins...)
	s.Plugins = nil
	return s
}
