package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"thebridge/app/api"
	"thebridge/app/cache"
	"thebridge/app/columns"
	"thebridge/app/fileloader"
	"thebridge/app/filterstate"
	"thebridge/app/plugin"
	"thebridge/app/presets"
	"thebridge/app/query"
	"thebridge/app/settings"
	"thebridge/app/timestamps"
)

// Frontend event names.
const (
	EventLog            = "log"
	EventResult         = "filters:result"
	EventIncompatible   = "filters:incompatible"
	EventProgress       = "query:progress"
	EventDataset        = "dataset:loaded"
	EventPresetRejected = "preset:rejected"
)

// App struct
type App struct {
	ctx context.Context

	settings   settings.Settings
	queryCache *cache.Cache
	planner    *query.Planner
	controller *filterstate.Controller

	plugins    *plugin.Registry
	pluginsErr error

	presetsMu  sync.Mutex
	presets    *presets.Store
	presetsErr error

	// emit is runtime.EventsEmit outside tests
	emit func(ctx context.Context, event string, data ...interface{})
}

// NewApp creates a new App application struct from the effective settings
func NewApp() *App {
	return NewAppWithSettings(settings.GetEffectiveSettings())
}

// NewAppWithSettings creates an App from explicit settings.
func NewAppWithSettings(s settings.Settings) *App {
	cacheSizeBytes := int64(s.CacheSizeLimitMB) * 1024 * 1024
	a := &App{
		settings:   s,
		queryCache: cache.NewCache(cacheSizeBytes),
		emit:       runtime.EventsEmit,
	}

	a.planner = query.NewPlanner(a.queryCache, query.CacheConfigFromSettings(s.EnableQueryCache, s.CacheSizeLimitMB))
	a.planner.SetLocation(timestamps.GetLocationForTZ(s.DisplayTimezone))
	a.planner.SetProgress(a.reportProgress)

	a.controller = filterstate.NewController(a.planner, filterstate.Options{
		Detect:   detectOptions(s),
		Debounce: time.Duration(s.DebounceMs) * time.Millisecond,
		Logger:   a,
	})
	a.controller.OnResult(a.publishResult)

	a.presets, a.presetsErr = presets.NewStore(settings.ResolvePath(s.PresetsFile))
	a.plugins = plugin.NewRegistry()
	a.pluginsErr = a.plugins.Load(s.Plugins)
	return a
}

func detectOptions(s settings.Settings) columns.Options {
	return columns.Options{
		CategoricalThreshold: s.CategoricalThreshold,
		SampleSize:           s.DateSampleSize,
		Majority:             s.DateMajority,
	}
}

// Startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.queryCache.SetLogger(a)
	if a.presetsErr != nil {
		a.Log("error", fmt.Sprintf("Presets unavailable: %v", a.presetsErr))
	}
	if a.pluginsErr != nil {
		a.Log("warn", a.pluginsErr.Error())
	}
	a.Log("info", fmt.Sprintf("Session %s started", a.controller.SessionID()))
}

// StartupHeadless starts the app without a Wails runtime. Log events go to
// the standard logger and other events are dropped.
func (a *App) StartupHeadless(ctx context.Context) {
	a.emit = func(_ context.Context, event string, data ...interface{}) {
		if event != EventLog || len(data) == 0 {
			return
		}
		if m, ok := data[0].(map[string]any); ok {
			log.Printf("[%v] %v", m["level"], m["message"])
		}
	}
	a.Startup(ctx)
}

// Ctx returns the app context
func (a *App) Ctx() context.Context {
	return a.ctx
}

// callCtx returns the Wails context, or Background before Startup.
func (a *App) callCtx() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// Log emits a structured log event to the frontend console window
func (a *App) Log(level, message string) {
	a.publish(EventLog, map[string]any{
		"level":   level,
		"message": message,
	})
}

func (a *App) publish(event string, data any) {
	if a == nil || a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, event, data)
}

func (a *App) reportProgress(stage string, current, total int64, message string) {
	a.publish(EventProgress, map[string]any{
		"stage":   stage,
		"current": current,
		"total":   total,
		"message": message,
	})
}

// publishResult delivers debounced recomputes to the frontend.
func (a *App) publishResult(result *query.QueryResult, err error) {
	if errors.Is(err, context.Canceled) {
		a.Log("debug", "Recompute superseded by a newer one")
		return
	}
	if err != nil {
		a.Log("error", fmt.Sprintf("Recompute failed: %v", err))
		return
	}
	a.publish(EventResult, a.controller.Outcome(result))
}

// HTTPHandler returns the headless API over this app's session.
func (a *App) HTTPHandler() http.Handler {
	h := api.NewHandler(a.controller, a.presets, fileloader.Limits{MaxDirectoryFiles: a.settings.MaxDirectoryFiles})
	h.Plugins = a.plugins
	return api.NewRouter(h, a.settings.AllowedOrigins)
}

// ApplySettings re-reads the effective settings and applies the parts that
// can change at runtime: timezone, cache and detection options. Detection
// changes take effect on the next load.
func (a *App) ApplySettings() {
	a.applySettings(settings.GetEffectiveSettings())
}

func (a *App) applySettings(s settings.Settings) {
	old := a.settings
	a.settings = s
	a.planner.SetLocation(timestamps.GetLocationForTZ(s.DisplayTimezone))
	a.planner.SetCacheConfig(query.CacheConfigFromSettings(s.EnableQueryCache, s.CacheSizeLimitMB))
	if old.CacheSizeLimitMB != s.CacheSizeLimitMB {
		a.UpdateCacheSize()
	}
	if err := a.plugins.Load(s.Plugins); err != nil {
		a.Log("warn", err.Error())
	}
	if old.PresetsFile != s.PresetsFile {
		store, err := presets.NewStore(settings.ResolvePath(s.PresetsFile))
		a.presetsMu.Lock()
		a.presets, a.presetsErr = store, err
		a.presetsMu.Unlock()
	}
}

// CacheStatsResponse contains cache statistics for the frontend
type CacheStatsResponse struct {
	TotalSize    int64   `json:"totalSize"`
	MaxSize      int64   `json:"maxSize"`
	UsagePercent float64 `json:"usagePercent"`
	EntryCount   int     `json:"entryCount"`
	HitRate      float64 `json:"hitRate"`
}

// GetCacheStats returns the current cache statistics for the frontend
func (a *App) GetCacheStats() CacheStatsResponse {
	stats := a.queryCache.GetCacheStats()
	return CacheStatsResponse{
		TotalSize:    stats.TotalSize,
		MaxSize:      stats.MaxSize,
		UsagePercent: stats.UsagePercent,
		EntryCount:   stats.TotalEntries,
		HitRate:      stats.HitRate,
	}
}

// ClearQueryCache drops every cached result. Called by the settings
// service when caching is toggled.
func (a *App) ClearQueryCache() {
	a.queryCache.Clear()
	a.applySettings(settings.GetEffectiveSettings())
	a.Log("debug", "Query cache cleared")
}

// UpdateCacheSize updates the query cache size limit based on current settings
func (a *App) UpdateCacheSize() {
	newSizeBytes := int64(a.settings.CacheSizeLimitMB) * 1024 * 1024
	a.queryCache.UpdateMaxSize(newSizeBytes)
	a.Log("debug", fmt.Sprintf("Updated cache size limit to %d MB (%d bytes)", a.settings.CacheSizeLimitMB, newSizeBytes))
}

// SaveWindowSize saves the current window dimensions to the settings file
func (a *App) SaveWindowSize(width, height int) error {
	if width < 400 || height < 300 {
		return fmt.Errorf("window size too small: minimum 400x300, got %dx%d", width, height)
	}

	currentSettings := settings.GetEffectiveSettings()
	currentSettings.WindowWidth = width
	currentSettings.WindowHeight = height
	return settings.NewSettingsService().SaveSettings(currentSettings)
}

// GetSavedWindowSize returns the saved window dimensions from settings
func (a *App) GetSavedWindowSize() (width, height int, err error) {
	width, height = a.settings.WindowWidth, a.settings.WindowHeight
	if width < 400 {
		width = 1024
	}
	if height < 300 {
		height = 768
	}
	return width, height, nil
}
