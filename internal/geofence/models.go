package geofence

import (
	"time"

	"anima/internal/device"
	"anima/internal/geo"
	"anima/internal/location"
	id "anima/pkg/domain"
)

// Status is the lifecycle of a verdict: idle -> checking -> ready|blocked|error.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusChecking Status = "checking"
	StatusReady    Status = "ready"
	// StatusBlocked is recoverable by the user (move closer, wait, pick a site).
	StatusBlocked Status = "blocked"
	// StatusError needs an operator (missing coordinates, no session, crash).
	StatusError Status = "error"
)

// IsTerminal reports whether s ends an evaluation cycle.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusBlocked || s == StatusError
}

type Mode string

const (
	ModeCheckIn  Mode = "check_in"
	ModeCheckOut Mode = "check_out"
)

func (m Mode) IsValid() bool {
	return m == ModeCheckIn || m == ModeCheckOut
}

// Request asks for a verdict. SiteID wins over any resolution when set,
// Location skips acquisition when it is fresh, Force bypasses the cache.
type Request struct {
	Mode     Mode
	SiteID   id.SiteID
	Location *location.ValidatedLocation
	Force    bool
}

// State is one verdict. It is replaced wholesale, never mutated after publish.
type State struct {
	Status                Status                      `json:"status"`
	CanProceed            bool                        `json:"can_proceed"`
	Mode                  Mode                        `json:"mode,omitempty"`
	SiteID                id.SiteID                   `json:"site_id,omitzero"`
	SiteName              string                      `json:"site_name,omitempty"`
	DistanceMeters        *float64                    `json:"distance_meters,omitempty"`
	AccuracyMeters        *float64                    `json:"accuracy_meters,omitempty"`
	EffectiveRadiusMeters *float64                    `json:"effective_radius_meters,omitempty"`
	Message               string                      `json:"message"`
	ErrorCode             string                      `json:"error_code,omitempty"`
	UpdatedAt             time.Time                   `json:"updated_at"`
	Location              *location.ValidatedLocation `json:"location,omitempty"`
	DeviceInfo            *AuditPayload               `json:"device_info,omitempty"`
	RequiresSelection     bool                        `json:"requires_selection"`
	CandidateSites        []geo.SiteCandidate         `json:"candidate_sites,omitempty"`
}

// AuditPayload is stored with the attendance log entry of a ready verdict.
type AuditPayload struct {
	Device   device.Info   `json:"device"`
	Warnings []string      `json:"warnings"`
	Geofence GeofenceAudit `json:"geofence"`
}

type GeofenceAudit struct {
	Mode                  Mode      `json:"mode"`
	SiteID                id.SiteID `json:"site_id"`
	DistanceMeters        float64   `json:"distance_meters"`
	AccuracyMeters        float64   `json:"accuracy_meters"`
	EffectiveRadiusMeters float64   `json:"effective_radius_meters"`
	MaxAccuracyMeters     float64   `json:"max_accuracy_meters"`
}

func f64(v float64) *float64 { return &v }
