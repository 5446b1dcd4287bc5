package attendance

import (
	"time"

	"anima/internal/attendance/models"
)

// dayBounds returns [start of day, start of next day) for now in loc.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// BuildState folds today's entries (chronological) into the daily read model.
// Status and the open interval come from last, the overall latest entry,
// which may predate today when a shift crosses midnight.
func BuildState(today []models.LogEntry, last *models.LogEntry) models.State {
	state := models.State{Status: models.StatusNotCheckedIn}

	var openIn *time.Time
	var completed time.Duration
	for i := range today {
		ts := today[i].Timestamp
		switch today[i].Action {
		case models.ActionCheckIn:
			state.LastCheckIn = &ts
			openIn = &ts
		case models.ActionCheckOut:
			state.LastCheckOut = &ts
			if openIn != nil {
				completed += ts.Sub(*openIn)
				openIn = nil
			}
		}
	}
	state.CompletedMinutes = int(completed / time.Minute)

	if last == nil {
		return state
	}
	switch last.Action {
	case models.ActionCheckIn:
		state.Status = models.StatusCheckedIn
		start := last.Timestamp
		state.OpenStartAt = &start
	case models.ActionCheckOut:
		state.Status = models.StatusCheckedOut
	}
	return state
}
