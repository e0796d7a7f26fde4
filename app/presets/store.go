package presets

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"thebridge/app/filterstate"
)

// Store persists presets and quick filters in one YAML file.
type Store struct {
	mu   sync.Mutex
	path string
	data storeFile
	now  func() time.Time
}

// NewStore opens the store at path. A missing file is an empty store.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}
	if err := yaml.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse presets file %s: %w", path, err)
	}
	log.Printf("[PRESET] Loaded %d presets and %d quick filters from %s", len(s.data.Presets), len(s.data.QuickFilters), path)
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) persistLocked() error {
	b, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create presets directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write presets file: %w", err)
	}
	return nil
}

func (s *Store) newPreset(name string, state *filterstate.FilterState, headers []string) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, errors.New("preset name is required")
	}
	if state == nil {
		state = filterstate.New()
	}
	return Preset{
		ID:            uuid.New().String(),
		Name:          name,
		FilterValues:  state.ToFlat(),
		ActiveFilters: state.ActiveTypes(),
		HeaderHash:    HeaderHash(headers),
		Headers:       slices.Clone(headers),
		CreatedAt:     s.now().UTC(),
	}, nil
}

// upsert replaces the preset with the same name or appends p.
func upsert(list []Preset, p Preset) []Preset {
	for i := range list {
		if list[i].Name == p.Name {
			list[i] = p
			return list
		}
	}
	return append(list, p)
}

func find(list []Preset, name string) (Preset, bool) {
	for _, p := range list {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Save stores the module layer and global search of state under name,
// bound to headers. An existing preset with that name is replaced.
func (s *Store) Save(name string, state *filterstate.FilterState, headers []string, linkedUrgencyCard string) (*Preset, error) {
	p, err := s.newPreset(name, state, headers)
	if err != nil {
		return nil, err
	}
	p.LinkedUrgencyCard = linkedUrgencyCard

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Presets = upsert(s.data.Presets, p)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	log.Printf("[PRESET] Saved %q with %d keys", p.Name, len(p.FilterValues))
	return &p, nil
}

// Apply rebuilds the filter state of the named preset. headers must equal
// the saved headers exactly, in order, and hash to the saved header hash;
// otherwise a *HeaderMismatchError is returned and nothing is applied.
func (s *Store) Apply(name string, headers []string) (*filterstate.FilterState, error) {
	s.mu.Lock()
	p, ok := find(s.data.Presets, name)
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return apply(p, headers)
}

func apply(p Preset, headers []string) (*filterstate.FilterState, error) {
	if !slices.Equal(p.Headers, headers) || p.HeaderHash != HeaderHash(headers) {
		log.Printf("[PRESET] Rejected %q: header mismatch", p.Name)
		return nil, &HeaderMismatchError{Name: p.Name, Expected: slices.Clone(p.Headers), Actual: slices.Clone(headers)}
	}
	return filterstate.FromFlat(p.FilterValues, p.ActiveFilters), nil
}

// Delete removes the named preset.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.data.Presets)
	s.data.Presets = slices.DeleteFunc(s.data.Presets, func(p Preset) bool { return p.Name == name })
	if len(s.data.Presets) == n {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return s.persistLocked()
}

// List returns the presets sorted by name.
func (s *Store) List() []Preset {
	s.mu.Lock()
	out := slices.Clone(s.data.Presets)
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the named preset.
func (s *Store) Get(name string) (*Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := find(s.data.Presets, name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return &p, nil
}

// SaveQuick stores a quick filter. Quick filters always keep the active
// filter types alongside the values.
func (s *Store) SaveQuick(name string, state *filterstate.FilterState, headers []string, opts QuickOptions) (*Preset, error) {
	p, err := s.newPreset(name, state, headers)
	if err != nil {
		return nil, err
	}
	p.LinkedUrgencyCard = opts.UrgencyCard
	p.HubType = opts.HubType
	if p.HubType == "" {
		p.HubType = DefaultHubType
	}
	p.Container = opts.Container
	p.ContainerTitle = strings.TrimSpace(opts.ContainerTitle)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.QuickFilters = upsert(s.data.QuickFilters, p)
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	log.Printf("[PRESET] Saved quick filter %q to %s hub", p.Name, p.HubType)
	return &p, nil
}

// ApplyQuick rebuilds the filter state of the named quick filter.
func (s *Store) ApplyQuick(name string, headers []string) (*filterstate.FilterState, error) {
	s.mu.Lock()
	p, ok := find(s.data.QuickFilters, name)
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return apply(p, headers)
}

// DeleteQuick removes the named quick filter.
func (s *Store) DeleteQuick(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.data.QuickFilters)
	s.data.QuickFilters = slices.DeleteFunc(s.data.QuickFilters, func(p Preset) bool { return p.Name == name })
	if len(s.data.QuickFilters) == n {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return s.persistLocked()
}

// ListQuick returns the quick filters of hubType in save order; an empty
// hubType lists all of them.
func (s *Store) ListQuick(hubType string) []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Preset, 0, len(s.data.QuickFilters))
	for _, p := range s.data.QuickFilters {
		if hubType == "" || p.HubType == hubType {
			out = append(out, p)
		}
	}
	return out
}
