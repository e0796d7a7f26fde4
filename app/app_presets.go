package app

import (
	"errors"
	"fmt"

	"thebridge/app/filterstate"
	"thebridge/app/presets"
)

// ErrPresetsUnavailable is returned when the presets file could not be opened.
var ErrPresetsUnavailable = errors.New("presets are unavailable")

func (a *App) presetStore() (*presets.Store, error) {
	a.presetsMu.Lock()
	defer a.presetsMu.Unlock()
	if a.presets == nil {
		if a.presetsErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrPresetsUnavailable, a.presetsErr)
		}
		return nil, ErrPresetsUnavailable
	}
	return a.presets, nil
}

// ListPresets returns the saved presets.
func (a *App) ListPresets() ([]presets.Preset, error) {
	store, err := a.presetStore()
	if err != nil {
		return nil, err
	}
	return store.List(), nil
}

// SavePreset saves the current filters under name, bound to the current
// headers.
func (a *App) SavePreset(name, linkedUrgencyCard string) (*presets.Preset, error) {
	store, err := a.presetStore()
	if err != nil {
		return nil, err
	}
	p, err := store.Save(name, a.controller.State(), a.controller.Headers(), linkedUrgencyCard)
	if err != nil {
		a.Log("error", fmt.Sprintf("Failed to save preset %q: %v", name, err))
		return nil, err
	}
	a.Log("info", fmt.Sprintf("Saved preset %q", name))
	return p, nil
}

// ApplyPreset replaces the current filters with the named preset. A preset
// saved for other headers is rejected and nothing changes.
func (a *App) ApplyPreset(name string) (*filterstate.Outcome, error) {
	store, err := a.presetStore()
	if err != nil {
		return nil, err
	}
	return a.applyPreset(name, store.Apply)
}

// DeletePreset removes the named preset.
func (a *App) DeletePreset(name string) error {
	store, err := a.presetStore()
	if err != nil {
		return err
	}
	return store.Delete(name)
}

// ListQuickFilters returns the quick filters of a hub, all hubs when empty.
func (a *App) ListQuickFilters(hubType string) ([]presets.Preset, error) {
	store, err := a.presetStore()
	if err != nil {
		return nil, err
	}
	return store.ListQuick(hubType), nil
}

// SaveQuickFilter saves the current filters as a quick filter.
func (a *App) SaveQuickFilter(name string, opts presets.QuickOptions) (*presets.Preset, error) {
	store, err := a.presetStore()
	if err != nil {
		return nil, err
	}
	return store.SaveQuick(name, a.controller.State(), a.controller.Headers(), opts)
}

// ApplyQuickFilter replaces the current filters with the named quick filter.
func (a *App) ApplyQuickFilter(name string) (*filterstate.Outcome, error) {
	store, err := a.presetStore()
	if err != nil {
		return nil, err
	}
	return a.applyPreset(name, store.ApplyQuick)
}

// DeleteQuickFilter removes the named quick filter.
func (a *App) DeleteQuickFilter(name string) error {
	store, err := a.presetStore()
	if err != nil {
		return err
	}
	return store.DeleteQuick(name)
}

func (a *App) applyPreset(name string, apply func(string, []string) (*filterstate.FilterState, error)) (*filterstate.Outcome, error) {
	state, err := apply(name, a.controller.Headers())
	if err != nil {
		var mismatch *presets.HeaderMismatchError
		if errors.As(err, &mismatch) {
			a.Log("error", mismatch.Error())
			a.publish(EventPresetRejected, map[string]any{
				"name":     mismatch.Name,
				"expected": mismatch.Expected,
				"actual":   mismatch.Actual,
			})
		}
		return nil, err
	}
	return a.outcome(a.controller.ReplaceState(a.callCtx(), state))
}
