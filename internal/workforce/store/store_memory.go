package store

import (
	"context"
	"sync"

	"anima/internal/workforce/models"
	id "anima/pkg/domain"
	"anima/pkg/platform/sentinel"
)

type assignmentRow struct {
	siteID  id.SiteID
	primary bool
}

// InMemoryStore keeps the registry in maps. Reads return copies so callers
// never observe later administrative edits through a stale pointer.
type InMemoryStore struct {
	mu          sync.RWMutex
	employees   map[id.EmployeeID]models.Employee
	byUser      map[id.UserID]id.EmployeeID
	sites       map[id.SiteID]models.Site
	assignments map[id.EmployeeID][]assignmentRow
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		employees:   make(map[id.EmployeeID]models.Employee),
		byUser:      make(map[id.UserID]id.EmployeeID),
		sites:       make(map[id.SiteID]models.Site),
		assignments: make(map[id.EmployeeID][]assignmentRow),
	}
}

func (s *InMemoryStore) FindEmployee(_ context.Context, employeeID id.EmployeeID) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[employeeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &e, nil
}

func (s *InMemoryStore) FindEmployeeByUser(ctx context.Context, userID id.UserID) (*models.Employee, error) {
	s.mu.RLock()
	employeeID, ok := s.byUser[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindEmployee(ctx, employeeID)
}

func (s *InMemoryStore) SaveEmployee(_ context.Context, employee *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if other, ok := s.byUser[employee.UserID]; ok && other != employee.ID {
		return sentinel.ErrConflict
	}
	s.employees[employee.ID] = *employee
	s.byUser[employee.UserID] = employee.ID
	return nil
}

func (s *InMemoryStore) SetEmployeeActive(_ context.Context, employeeID id.EmployeeID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[employeeID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Active = active
	s.employees[employeeID] = e
	return nil
}

func (s *InMemoryStore) FindSite(_ context.Context, siteID id.SiteID) (*models.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[siteID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &site, nil
}

func (s *InMemoryStore) SaveSite(_ context.Context, site *models.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = *site
	return nil
}

// DeleteSite removes a site, leaving dangling assignments in place the way a
// soft-deleted registry row would.
func (s *InMemoryStore) DeleteSite(_ context.Context, siteID id.SiteID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sites, siteID)
}

func (s *InMemoryStore) ListAssignments(_ context.Context, employeeID id.EmployeeID) ([]models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.assignments[employeeID]
	out := make([]models.Assignment, 0, len(rows))
	for _, row := range rows {
		site, ok := s.sites[row.siteID]
		if !ok {
			continue
		}
		out = append(out, models.Assignment{Site: site, Primary: row.primary})
	}
	return out, nil
}

func (s *InMemoryStore) ReplaceAssignments(_ context.Context, employeeID id.EmployeeID, siteIDs []id.SiteID, primary id.SiteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[employeeID]; !ok {
		return sentinel.ErrNotFound
	}
	rows := make([]assignmentRow, 0, len(siteIDs))
	for _, siteID := range siteIDs {
		if _, ok := s.sites[siteID]; !ok {
			return sentinel.ErrNotFound
		}
		rows = append(rows, assignmentRow{siteID: siteID, primary: siteID == primary})
	}
	s.assignments[employeeID] = rows
	return nil
}
