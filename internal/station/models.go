// Package station holds the jurisdictional office entity: the administrative
// office responsible for incidents in its vicinity. Stations are owned by
// administrators and read-only to the nearest-station resolver.
package station

import (
	"strings"
	"time"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
)

// Station is a jurisdictional office. Deactivation is a soft flag:
// historical assignments on reports are never cleared by it.
type Station struct {
	ID            id.StationID
	Name          string
	Latitude      float64
	Longitude     float64
	Active        bool
	ContactEmails []string
	ContactPhone  string
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// Validate enforces the station creation invariants.
func (s *Station) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "station name is required")
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return dErrors.New(dErrors.CodeValidation, "latitude must be within [-90, 90]")
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return dErrors.New(dErrors.CodeValidation, "longitude must be within [-180, 180]")
	}
	return nil
}
