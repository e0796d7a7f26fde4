package timestamps

import (
	"strings"
	"time"

	"thebridge/app/settings"
)

// GetLocationForTZ resolves a timezone name to a *time.Location. Supports "Local", "UTC", and IANA TZ names.
func GetLocationForTZ(name string) *time.Location {
	tzName := strings.TrimSpace(name)
	switch strings.ToUpper(tzName) {
	case "", "LOCAL":
		return time.Local
	case "UTC":
		return time.UTC
	default:
		if l, err := time.LoadLocation(tzName); err == nil {
			return l
		}
		return time.Local
	}
}

// GetDisplayTimezone returns the timezone TODAY expressions are resolved in
func GetDisplayTimezone() *time.Location {
	effective := settings.GetEffectiveSettings()
	return GetLocationForTZ(effective.DisplayTimezone)
}
