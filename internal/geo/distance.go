// Package geo holds the pure geometry used by geofence evaluation:
// great-circle distance, coordinate sanity checks and candidate ranking.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Region is a latitude/longitude bounding box.
type Region struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// RegionFromBounds builds a Region from min_lat,min_lon,max_lat,max_lon.
func RegionFromBounds(b [4]float64) Region {
	return Region{MinLat: b[0], MinLon: b[1], MaxLat: b[2], MaxLon: b[3]}
}

func (r Region) Contains(p Point) bool {
	return p.Lat >= r.MinLat && p.Lat <= r.MaxLat && p.Lon >= r.MinLon && p.Lon <= r.MaxLon
}

// IsZero reports whether the region is unset, in which case no region check applies.
func (r Region) IsZero() bool {
	return r == Region{}
}

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// CheckCoordinates returns the problems found with p: out of the valid
// latitude/longitude range or outside region. An empty result means p is sane.
// Callers decide whether problems are fatal; Distance accepts any input.
func CheckCoordinates(p Point, region Region) []string {
	var problems []string
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return []string{"coordinates are not numbers"}
	}
	if p.Lat < -90 || p.Lat > 90 {
		problems = append(problems, fmt.Sprintf("latitude %.6f out of range [-90, 90]", p.Lat))
	}
	if p.Lon < -180 || p.Lon > 180 {
		problems = append(problems, fmt.Sprintf("longitude %.6f out of range [-180, 180]", p.Lon))
	}
	if len(problems) == 0 && !region.IsZero() && !region.Contains(p) {
		problems = append(problems, fmt.Sprintf("point (%.6f, %.6f) outside expected operating region", p.Lat, p.Lon))
	}
	return problems
}
