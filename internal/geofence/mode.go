package geofence

import attmodels "anima/internal/attendance/models"

// InferMode picks check_out when the last logged action was a check-in and
// check_in otherwise, including when there is no log at all.
func InferMode(lastAction attmodels.Action) Mode {
	if lastAction == attmodels.ActionCheckIn {
		return ModeCheckOut
	}
	return ModeCheckIn
}
