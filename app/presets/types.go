package presets

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"thebridge/app/columns"
	"thebridge/app/fingerprint"
)

var (
	// ErrPresetNotFound is returned when no preset has the requested name.
	ErrPresetNotFound = errors.New("preset not found")
	// ErrHeaderMismatch is returned when a preset was saved for other headers.
	ErrHeaderMismatch = errors.New("preset cannot be applied to the current data")
)

// HeaderMismatchError describes a rejected preset application.
type HeaderMismatchError struct {
	Name     string
	Expected []string
	Actual   []string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("filter %q cannot be applied to the current data: saved for columns [%s], dataset has [%s]",
		e.Name, strings.Join(e.Expected, ", "), strings.Join(e.Actual, ", "))
}

func (e *HeaderMismatchError) Unwrap() error {
	return ErrHeaderMismatch
}

// Preset is a named snapshot of filter values bound to one header layout.
type Preset struct {
	ID                string                        `yaml:"id" json:"id"`
	Name              string                        `yaml:"name" json:"name"`
	FilterValues      map[string]any                `yaml:"filterValues" json:"filterValues"`
	ActiveFilters     map[string]columns.ColumnType `yaml:"activeFilters,omitempty" json:"activeFilters,omitempty"`
	HeaderHash        string                        `yaml:"headerHash" json:"headerHash"`
	Headers           []string                      `yaml:"headers" json:"headers"`
	LinkedUrgencyCard string                        `yaml:"linkedUrgencyCard,omitempty" json:"linkedUrgencyCard,omitempty"`
	CreatedAt         time.Time                     `yaml:"createdAt" json:"createdAt"`

	// Quick filter fields
	HubType        string `yaml:"hubType,omitempty" json:"hubType,omitempty"`
	Container      string `yaml:"container,omitempty" json:"container,omitempty"`
	ContainerTitle string `yaml:"containerTitle,omitempty" json:"containerTitle,omitempty"`
}

// QuickOptions are the placement details of a quick filter.
type QuickOptions struct {
	UrgencyCard    string `json:"urgencyCard,omitempty"`
	HubType        string `json:"hubType,omitempty"` // "ops" when empty
	Container      string `json:"container,omitempty"`
	ContainerTitle string `json:"containerTitle,omitempty"`
}

// DefaultHubType is where quick filters go when no hub is named.
const DefaultHubType = "ops"

// storeFile is the on-disk layout.
type storeFile struct {
	Presets      []Preset `yaml:"presets"`
	QuickFilters []Preset `yaml:"quickFilters,omitempty"`
}

// HeaderHash fingerprints an ordered header list.
func HeaderHash(headers []string) string {
	return fingerprint.Strings(headers, "||")
}
