package plugin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Manifest is the parsed plugin.yml manifest file
type Manifest struct {
	ID          string   `yaml:"id" json:"id"` // Unique plugin identifier (UUID)
	Name        string   `yaml:"name" json:"name"`
	Version     string   `yaml:"version" json:"version"`
	Description string   `yaml:"description" json:"description"`
	Executable  string   `yaml:"executable" json:"executable"`
	Extensions  []string `yaml:"extensions" json:"extensions"`
	Author      string   `yaml:"author" json:"author"`
}

// Validate checks required fields and their formats
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return errors.New("manifest missing required field: id (UUID)")
	}
	if _, err := uuid.Parse(m.ID); err != nil {
		return fmt.Errorf("manifest field 'id' must be a valid UUID, got: %s", m.ID)
	}

	if m.Name == "" {
		return errors.New("manifest missing required field: name")
	}
	if len(m.Name) > 100 {
		return errors.New("manifest field 'name' exceeds 100 characters")
	}

	if m.Version == "" {
		return errors.New("manifest missing required field: version")
	}
	if !isValidSemver(m.Version) {
		return fmt.Errorf("manifest field 'version' must be in semver format (e.g., '1.0.0'), got: %s", m.Version)
	}

	if m.Executable == "" {
		return errors.New("manifest missing required field: executable")
	}

	if len(m.Extensions) == 0 {
		return errors.New("manifest missing required field: extensions (must have at least one)")
	}
	for i, ext := range m.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension at index %d must start with a dot, got: %s", i, ext)
		}
	}

	if len(m.Description) > 500 {
		return errors.New("manifest field 'description' exceeds 500 characters")
	}
	if len(m.Author) > 200 {
		return errors.New("manifest field 'author' exceeds 200 characters")
	}
	return nil
}

// isValidSemver accepts MAJOR.MINOR.PATCH with numeric parts
func isValidSemver(version string) bool {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, ch := range part {
			if ch < '0' || ch > '9' {
				return false
			}
		}
	}
	return true
}
