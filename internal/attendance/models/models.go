// Package models holds the attendance log and the derived daily read model.
package models

import (
	"encoding/json"
	"time"

	id "anima/pkg/domain"
)

// Action is the kind of an attendance log entry.
type Action string

const (
	ActionCheckIn  Action = "check_in"
	ActionCheckOut Action = "check_out"
)

func (a Action) IsValid() bool {
	return a == ActionCheckIn || a == ActionCheckOut
}

// SourceMobile tags entries written by the mobile attendance flow.
const SourceMobile = "mobile"

// LogEntry is an append-only attendance record. Check-ins and check-outs of
// one employee alternate.
type LogEntry struct {
	ID             id.LogID        `json:"id"`
	EmployeeID     id.EmployeeID   `json:"employee_id"`
	SiteID         id.SiteID       `json:"site_id"`
	Action         Action          `json:"action"`
	Timestamp      time.Time       `json:"timestamp"`
	Latitude       *float64        `json:"latitude,omitempty"`
	Longitude      *float64        `json:"longitude,omitempty"`
	AccuracyMeters *float64        `json:"accuracy_meters,omitempty"`
	DeviceInfo     json.RawMessage `json:"device_info,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Source         string          `json:"source"`
}

// Status is the live attendance status of an employee.
type Status string

const (
	StatusNotCheckedIn Status = "not_checked_in"
	StatusCheckedIn    Status = "checked_in"
	StatusCheckedOut   Status = "checked_out"
)

// State is today's attendance, rebuilt from the log on every load.
type State struct {
	Status           Status     `json:"status"`
	LastCheckIn      *time.Time `json:"last_check_in,omitempty"`
	LastCheckOut     *time.Time `json:"last_check_out,omitempty"`
	CompletedMinutes int        `json:"completed_minutes"`
	OpenStartAt      *time.Time `json:"open_start_at,omitempty"`
}
