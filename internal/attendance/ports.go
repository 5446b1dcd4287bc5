package attendance

import (
	"context"
	"time"

	"anima/internal/attendance/models"
	"anima/internal/geofence"
	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
)

// Evaluator produces geofence verdicts for the current user.
type Evaluator interface {
	Evaluate(ctx context.Context, req geofence.Request) *geofence.State
}

// SessionSource loads the employee behind a user.
type SessionSource interface {
	Session(ctx context.Context, userID id.UserID) (*wfmodels.Session, error)
}

// LogStore is the append-only attendance log.
type LogStore interface {
	// LastLog returns sentinel.ErrNotFound when the employee has no entries.
	LastLog(ctx context.Context, employeeID id.EmployeeID) (*models.LogEntry, error)
	// ListBetween returns entries in [from, to) in chronological order.
	ListBetween(ctx context.Context, employeeID id.EmployeeID, from, to time.Time) ([]models.LogEntry, error)
	Append(ctx context.Context, entry *models.LogEntry) error
}

// SelectionStore holds a site the user picked after a disambiguation prompt.
type SelectionStore interface {
	// Take returns and removes the pending choice, or sentinel.ErrNotFound.
	Take(ctx context.Context, userID id.UserID) (id.SiteID, error)
}

// Notifier fans attendance outcomes out to other systems. Failures never
// fail the action.
type Notifier interface {
	AttendanceRecorded(ctx context.Context, entry models.LogEntry) error
	AttendanceFailed(ctx context.Context, employeeID id.EmployeeID, action models.Action, reason string) error
}
