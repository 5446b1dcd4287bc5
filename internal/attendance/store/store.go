// Package store persists the attendance log. Appends are re-validated: the
// site must be assigned, actions must alternate, and a geofenced entry must
// fit the mode's radius policy.
package store

import (
	"context"
	"time"

	"anima/internal/attendance/models"
	"anima/internal/geo"
	"anima/internal/geofence"
	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
)

// Store is the attendance log.
type Store interface {
	LastLog(ctx context.Context, employeeID id.EmployeeID) (*models.LogEntry, error)
	ListBetween(ctx context.Context, employeeID id.EmployeeID, from, to time.Time) ([]models.LogEntry, error)
	Append(ctx context.Context, entry *models.LogEntry) error
}

// ErrSiteNotAssigned is the message clients match on.
const ErrSiteNotAssigned = "site not assigned to employee"

func checkEntry(entry *models.LogEntry) error {
	if entry == nil {
		return dErrors.New(dErrors.CodeBadRequest, "entry is required")
	}
	if entry.EmployeeID.IsNil() || entry.SiteID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "employee and site are required")
	}
	if !entry.Action.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown action")
	}
	return nil
}

// checkSequence enforces check_in / check_out alternation.
func checkSequence(last *models.LogEntry, action models.Action) error {
	switch action {
	case models.ActionCheckIn:
		if last != nil && last.Action == models.ActionCheckIn {
			return dErrors.New(dErrors.CodeConflict, "employee is already checked in")
		}
	case models.ActionCheckOut:
		if last == nil || last.Action != models.ActionCheckIn {
			return dErrors.New(dErrors.CodeConflict, "no open check-in")
		}
	}
	return nil
}

// checkPolicy applies the geofence radius gate to a stored entry. Sites
// without coordinates accept any entry.
func checkPolicy(site wfmodels.Site, entry *models.LogEntry) error {
	if !site.HasCoordinates() {
		return nil
	}
	if entry.Latitude == nil || entry.Longitude == nil || entry.AccuracyMeters == nil {
		return dErrors.New(dErrors.CodeForbidden, "location is required for this site")
	}
	policy := geofence.PolicyFor(geofence.Mode(entry.Action))
	accuracy := *entry.AccuracyMeters
	if accuracy > policy.MaxAccuracyMeters {
		return dErrors.New(dErrors.CodeForbidden, "location accuracy too low")
	}
	distance := geo.Distance(geo.Point{Lat: *entry.Latitude, Lon: *entry.Longitude}, site.Point())
	radius := geo.EffectiveRadius(site.RadiusMeters, policy.RadiusCapMeters)
	if !geo.InRange(distance, accuracy, radius) {
		return dErrors.New(dErrors.CodeForbidden, "location outside site radius")
	}
	return nil
}
