package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// SettingsService manages reading/writing settings from disk.
type SettingsService struct {
	ctx          context.Context
	cacheManager CacheManager
}

func NewSettingsService() *SettingsService {
	return &SettingsService{}
}

// SetCacheManager allows the main function to inject the cache manager
func (s *SettingsService) SetCacheManager(cm CacheManager) {
	s.cacheManager = cm
}

// Startup receives the Wails context
func (s *SettingsService) Startup(ctx context.Context) {
	s.ctx = ctx
}

// GetSettings returns the effective settings (defaults overlaid with file overrides if any).
// Unlike GetEffectiveSettings it reports read and parse failures.
func (s *SettingsService) GetSettings() (Settings, error) {
	settings := Defaults()
	path, err := settingsFilePath()
	if err != nil {
		return settings, err
	}
	// If file doesn't exist, return defaults
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return settings, err
	}
	// Unmarshal into a generic map to detect key presence
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return settings, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	overlay(&settings, m)
	return settings, nil
}

// SaveSettings saves only the values that differ from defaults into YAML in the binary directory.
func (s *SettingsService) SaveSettings(in Settings) error {
	old := GetEffectiveSettings()
	cacheChanged := old.EnableQueryCache != in.EnableQueryCache
	cacheSizeChanged := old.CacheSizeLimitMB != in.CacheSizeLimitMB

	// Build a minimal map containing only non-default values to avoid zero-value serialization pitfalls
	data := make(map[string]any)
	if in.EnableQueryCache != defaultSettings.EnableQueryCache {
		data["enable_query_cache"] = in.EnableQueryCache
	}
	if in.CacheSizeLimitMB != defaultSettings.CacheSizeLimitMB && in.CacheSizeLimitMB > 0 {
		data["cache_size_limit_mb"] = in.CacheSizeLimitMB
	}
	if in.CategoricalThreshold != defaultSettings.CategoricalThreshold && in.CategoricalThreshold > 0 {
		data["categorical_threshold"] = in.CategoricalThreshold
	}
	if in.DateSampleSize != defaultSettings.DateSampleSize && in.DateSampleSize > 0 {
		data["date_sample_size"] = in.DateSampleSize
	}
	if in.DateMajority != defaultSettings.DateMajority && in.DateMajority > 0 && in.DateMajority <= 1 {
		data["date_majority"] = in.DateMajority
	}
	if in.DebounceMs != defaultSettings.DebounceMs && in.DebounceMs >= 0 {
		data["debounce_ms"] = in.DebounceMs
	}
	if strings.TrimSpace(in.DisplayTimezone) != strings.TrimSpace(defaultSettings.DisplayTimezone) {
		data["display_timezone"] = strings.TrimSpace(in.DisplayTimezone)
	}
	if p := strings.TrimSpace(in.PresetsFile); p != "" && p != defaultSettings.PresetsFile {
		data["presets_file"] = p
	}

	maxDirFiles := in.MaxDirectoryFiles
	if maxDirFiles == 0 {
		maxDirFiles = old.MaxDirectoryFiles
	}
	if maxDirFiles != defaultSettings.MaxDirectoryFiles && maxDirFiles >= 10 {
		data["max_directory_files"] = maxDirFiles
	}
	if addr := strings.TrimSpace(in.HTTPAddr); addr != "" {
		data["http_addr"] = addr
	}
	if in.AllowedOrigins != nil && !slices.Equal(in.AllowedOrigins, defaultSettings.AllowedOrigins) {
		data["allowed_origins"] = in.AllowedOrigins
	}

	// Preserve window size (not visible in settings dialog, but must persist)
	windowWidth := in.WindowWidth
	if windowWidth == 0 {
		windowWidth = old.WindowWidth
	}
	if windowWidth != defaultSettings.WindowWidth && windowWidth >= 400 {
		data["window_width"] = windowWidth
	}
	windowHeight := in.WindowHeight
	if windowHeight == 0 {
		windowHeight = old.WindowHeight
	}
	if windowHeight != defaultSettings.WindowHeight && windowHeight >= 300 {
		data["window_height"] = windowHeight
	}

	path, err := settingsFilePath()
	if err != nil {
		return err
	}

	if len(data) == 0 {
		// If there is an existing file, remove it to reflect defaults-only state
		if _, statErr := os.Stat(path); statErr == nil {
			_ = os.Remove(path)
		}
	} else {
		b, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return err
		}
	}

	if cacheChanged && s.cacheManager != nil {
		s.cacheManager.ClearQueryCache()
	}
	if cacheSizeChanged && s.cacheManager != nil {
		s.cacheManager.UpdateCacheSize()
	}
	return nil
}
