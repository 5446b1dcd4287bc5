package geofence

import (
	"time"

	"anima/internal/location"
)

// CacheTTL bounds how long a ready verdict is reused without force.
const CacheTTL = 20 * time.Second

// Policy is the per-mode geofence rule set. The attendance store enforces the
// same numbers when it re-validates an append.
type Policy struct {
	RadiusCapMeters   float64
	MaxAccuracyMeters float64
	Samples           int
	Timeout           time.Duration
}

var policies = map[Mode]Policy{
	ModeCheckIn:  {RadiusCapMeters: 20, MaxAccuracyMeters: 20, Samples: 4, Timeout: 20 * time.Second},
	ModeCheckOut: {RadiusCapMeters: 30, MaxAccuracyMeters: 25, Samples: 3, Timeout: 20 * time.Second},
}

// PolicyFor returns the policy of mode. Unknown modes get the check-in rules,
// the stricter of the two.
func PolicyFor(mode Mode) Policy {
	if p, ok := policies[mode]; ok {
		return p
	}
	return policies[ModeCheckIn]
}

func (p Policy) AcquireOptions() location.Options {
	return location.Options{
		MaxAccuracyMeters: p.MaxAccuracyMeters,
		Samples:           p.Samples,
		Timeout:           p.Timeout,
	}
}
