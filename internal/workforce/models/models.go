// Package models holds the workforce registry types: employees, work sites
// and the assignments between them.
package models

import (
	"time"

	"anima/internal/geo"
	id "anima/pkg/domain"
)

const RoleEmployee = "employee"

// Site is a work site. A site with coordinates requires geolocation; a site
// with only one coordinate set is misconfigured.
type Site struct {
	ID           id.SiteID `json:"id"`
	Name         string    `json:"name"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	RadiusMeters float64   `json:"radius_meters"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RequiresGeolocation is true when any coordinate is configured.
func (s *Site) RequiresGeolocation() bool {
	return s.Latitude != nil || s.Longitude != nil
}

// HasCoordinates is true when both coordinates are configured.
func (s *Site) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Point returns the site position. Only meaningful when HasCoordinates.
func (s *Site) Point() geo.Point {
	if !s.HasCoordinates() {
		return geo.Point{}
	}
	return geo.Point{Lat: *s.Latitude, Lon: *s.Longitude}
}

type Employee struct {
	ID        id.EmployeeID `json:"id"`
	UserID    id.UserID     `json:"user_id"`
	FullName  string        `json:"full_name"`
	Active    bool          `json:"active"`
	Role      string        `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
}

// Assignment links an employee to a site they may attend.
type Assignment struct {
	Site    Site `json:"site"`
	Primary bool `json:"primary"`
}

// Session is the authenticated context the geofence engine and attendance
// actions read: the user, their employee profile and assigned sites.
type Session struct {
	UserID      id.UserID
	Employee    *Employee
	Sites       []Assignment
	SitesLoaded bool
}

// Authenticated reports whether the session belongs to a known employee.
func (s *Session) Authenticated() bool {
	return s != nil && !s.UserID.IsNil() && s.Employee != nil
}

// PrimarySite returns the primary assignment, or the first one.
func (s *Session) PrimarySite() (Site, bool) {
	if len(s.Sites) == 0 {
		return Site{}, false
	}
	for _, a := range s.Sites {
		if a.Primary {
			return a.Site, true
		}
	}
	return s.Sites[0].Site, true
}

// HasSite reports whether siteID is assigned to the employee.
func (s *Session) HasSite(siteID id.SiteID) bool {
	for _, a := range s.Sites {
		if a.Site.ID == siteID {
			return true
		}
	}
	return false
}
