package geofence

import (
	"context"

	attmodels "anima/internal/attendance/models"
	"anima/internal/device"
	"anima/internal/location"
	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
)

// SessionSource loads the employee profile and site assignments of a user.
type SessionSource interface {
	Session(ctx context.Context, userID id.UserID) (*wfmodels.Session, error)
}

// SiteRegistry reads a site's current record. Implementations must not cache.
type SiteRegistry interface {
	FindSite(ctx context.Context, siteID id.SiteID) (*wfmodels.Site, error)
}

// LogReader returns the employee's most recent log entry, or
// sentinel.ErrNotFound when there is none.
type LogReader interface {
	LastLog(ctx context.Context, employeeID id.EmployeeID) (*attmodels.LogEntry, error)
}

// Acquirer produces a validated reading.
type Acquirer interface {
	Acquire(ctx context.Context, opts location.Options) (*location.ValidatedLocation, error)
	IsPhysicalDevice() bool
}

// DeviceInfoSource describes the device for audit payloads.
type DeviceInfoSource interface {
	DeviceInfo(ctx context.Context) device.Info
}

// Observer is called with every published state.
type Observer func(*State)
