package geo

import (
	"math"
	"slices"

	id "anima/pkg/domain"
)

// SiteCandidate is a site projected against the current location during
// disambiguation. It is never persisted.
type SiteCandidate struct {
	SiteID                id.SiteID `json:"site_id"`
	Name                  string    `json:"name"`
	DistanceMeters        float64   `json:"distance_meters"`
	EffectiveRadiusMeters float64   `json:"effective_radius_meters"`
	RequiresGeolocation   bool      `json:"requires_geolocation"`
	Position              Point     `json:"-"`
}

// InRange applies the accuracy-padded gate: the whole error circle must fit
// inside the effective radius.
func (c SiteCandidate) InRange(accuracyMeters float64) bool {
	return InRange(c.DistanceMeters, accuracyMeters, c.EffectiveRadiusMeters)
}

// InRange reports whether distance + accuracy <= radius.
func InRange(distanceMeters, accuracyMeters, radiusMeters float64) bool {
	return distanceMeters+accuracyMeters <= radiusMeters
}

// EffectiveRadius caps a configured site radius by the policy cap.
func EffectiveRadius(siteRadius, policyCap float64) float64 {
	return math.Min(siteRadius, policyCap)
}

// SortByDistance orders candidates nearest first. Equal distances keep input order.
func SortByDistance(candidates []SiteCandidate) {
	slices.SortStableFunc(candidates, func(a, b SiteCandidate) int {
		switch {
		case a.DistanceMeters < b.DistanceMeters:
			return -1
		case a.DistanceMeters > b.DistanceMeters:
			return 1
		default:
			return 0
		}
	})
}

// Partition splits candidates into in-range and out-of-range, preserving order.
func Partition(candidates []SiteCandidate, accuracyMeters float64) (inRange, outOfRange []SiteCandidate) {
	for _, c := range candidates {
		if c.InRange(accuracyMeters) {
			inRange = append(inRange, c)
		} else {
			outOfRange = append(outOfRange, c)
		}
	}
	return inRange, outOfRange
}

// TieRule decides when two sites are physically indistinguishable.
type TieRule struct {
	DistanceMeters float64
	EpsilonDegrees float64
}

// DefaultTieRule matches sites registered at the same street address.
var DefaultTieRule = TieRule{DistanceMeters: 5, EpsilonDegrees: 1e-5}

// Tied reports whether a and b are within DistanceMeters of each other, or
// their coordinates match within EpsilonDegrees on both axes.
func (r TieRule) Tied(a, b SiteCandidate) bool {
	if math.Abs(a.Position.Lat-b.Position.Lat) <= r.EpsilonDegrees &&
		math.Abs(a.Position.Lon-b.Position.Lon) <= r.EpsilonDegrees {
		return true
	}
	return Distance(a.Position, b.Position) <= r.DistanceMeters
}

// NearestGroup returns the cluster of candidates tied with the nearest one.
// sorted must be ordered by distance. A candidate joins when it is tied with
// any member already in the group, so chains of co-located sites stay
// together. The result keeps distance order.
func (r TieRule) NearestGroup(sorted []SiteCandidate) []SiteCandidate {
	if len(sorted) == 0 {
		return nil
	}
	group := []SiteCandidate{sorted[0]}
	for _, c := range sorted[1:] {
		for _, member := range group {
			if r.Tied(member, c) {
				group = append(group, c)
				break
			}
		}
	}
	return group
}
