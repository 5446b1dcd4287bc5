package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"anima/internal/workforce/models"
	id "anima/pkg/domain"
	"anima/pkg/requestcontext"
)

// DemoSeed describes what SeedDemo created, for logging a usable token.
type DemoSeed struct {
	Employee models.Employee
	Manager  models.Employee
	Sites    []models.Site
}

func ptr(v float64) *float64 { return &v }

// SeedDemo loads a small Bogotá registry: two co-located sites at one street
// address, a third site across town and a remote site without coordinates.
func SeedDemo(ctx context.Context, s Store) (*DemoSeed, error) {
	now := time.Now()
	sites := []models.Site{
		{ID: id.SiteID(uuid.New()), Name: "Sede Chapinero - Piso 3", Latitude: ptr(4.6486), Longitude: ptr(-74.0628), RadiusMeters: 50, UpdatedAt: now},
		{ID: id.SiteID(uuid.New()), Name: "Sede Chapinero - Piso 5", Latitude: ptr(4.6486), Longitude: ptr(-74.0628), RadiusMeters: 50, UpdatedAt: now},
		{ID: id.SiteID(uuid.New()), Name: "Sede Centro", Latitude: ptr(4.5981), Longitude: ptr(-74.0760), RadiusMeters: 80, UpdatedAt: now},
		{ID: id.SiteID(uuid.New()), Name: "Trabajo remoto", RadiusMeters: 0, UpdatedAt: now},
	}
	for i := range sites {
		if err := s.SaveSite(ctx, &sites[i]); err != nil {
			return nil, fmt.Errorf("seed site %q: %w", sites[i].Name, err)
		}
	}

	employee := models.Employee{
		ID: id.EmployeeID(uuid.New()), UserID: id.UserID(uuid.New()),
		FullName: "Laura Gómez", Active: true, Role: models.RoleEmployee, CreatedAt: now,
	}
	manager := models.Employee{
		ID: id.EmployeeID(uuid.New()), UserID: id.UserID(uuid.New()),
		FullName: "Andrés Rojas", Active: true, Role: requestcontext.RoleManager, CreatedAt: now,
	}
	for _, e := range []*models.Employee{&employee, &manager} {
		if err := s.SaveEmployee(ctx, e); err != nil {
			return nil, fmt.Errorf("seed employee %q: %w", e.FullName, err)
		}
	}

	siteIDs := []id.SiteID{sites[0].ID, sites[1].ID, sites[2].ID}
	if err := s.ReplaceAssignments(ctx, employee.ID, siteIDs, sites[2].ID); err != nil {
		return nil, fmt.Errorf("seed assignments: %w", err)
	}
	if err := s.ReplaceAssignments(ctx, manager.ID, []id.SiteID{sites[3].ID}, sites[3].ID); err != nil {
		return nil, fmt.Errorf("seed assignments: %w", err)
	}
	return &DemoSeed{Employee: employee, Manager: manager, Sites: sites}, nil
}
