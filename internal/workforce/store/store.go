// Package store persists employees, sites and assignments.
package store

import (
	"context"

	"anima/internal/workforce/models"
	id "anima/pkg/domain"
)

// Store is implemented by the in-memory and Postgres stores.
type Store interface {
	FindEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.Employee, error)
	FindEmployeeByUser(ctx context.Context, userID id.UserID) (*models.Employee, error)
	SaveEmployee(ctx context.Context, employee *models.Employee) error
	SetEmployeeActive(ctx context.Context, employeeID id.EmployeeID, active bool) error

	FindSite(ctx context.Context, siteID id.SiteID) (*models.Site, error)
	SaveSite(ctx context.Context, site *models.Site) error

	ListAssignments(ctx context.Context, employeeID id.EmployeeID) ([]models.Assignment, error)
	ReplaceAssignments(ctx context.Context, employeeID id.EmployeeID, siteIDs []id.SiteID, primary id.SiteID) error
}
