// Package notify publishes attendance outcomes to other systems. Delivery is
// best effort: callers log failures and carry on.
package notify

import (
	"time"

	"anima/internal/attendance/models"
	id "anima/pkg/domain"
)

const (
	EventAttendanceRecorded = "attendance.recorded"
	EventAttendanceFailed   = "attendance.failed"
)

// Event is the wire shape of a notification.
type Event struct {
	Type       string        `json:"type"`
	EmployeeID id.EmployeeID `json:"employee_id"`
	Action     models.Action `json:"action"`
	SiteID     *id.SiteID    `json:"site_id,omitempty"`
	LogID      *id.LogID     `json:"log_id,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func recordedEvent(entry models.LogEntry) Event {
	siteID, logID := entry.SiteID, entry.ID
	return Event{
		Type:       EventAttendanceRecorded,
		EmployeeID: entry.EmployeeID,
		Action:     entry.Action,
		SiteID:     &siteID,
		LogID:      &logID,
		OccurredAt: entry.Timestamp,
	}
}

func failedEvent(employeeID id.EmployeeID, action models.Action, reason string, now time.Time) Event {
	return Event{
		Type:       EventAttendanceFailed,
		EmployeeID: employeeID,
		Action:     action,
		Reason:     reason,
		OccurredAt: now,
	}
}
