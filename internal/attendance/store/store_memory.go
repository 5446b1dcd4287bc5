package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"anima/internal/attendance/models"
	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/sentinel"
)

// AssignmentSource lists the sites an employee may attend.
type AssignmentSource interface {
	ListAssignments(ctx context.Context, employeeID id.EmployeeID) ([]wfmodels.Assignment, error)
}

// InMemoryStore keeps the attendance log per employee in timestamp order.
// With an AssignmentSource it re-validates appends like the Postgres store.
type InMemoryStore struct {
	mu          sync.RWMutex
	logs        map[id.EmployeeID][]models.LogEntry
	assignments AssignmentSource
}

func NewInMemoryStore(assignments AssignmentSource) *InMemoryStore {
	return &InMemoryStore{
		logs:        make(map[id.EmployeeID][]models.LogEntry),
		assignments: assignments,
	}
}

func (s *InMemoryStore) LastLog(_ context.Context, employeeID id.EmployeeID) (*models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.logs[employeeID]
	if len(entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	last := entries[len(entries)-1]
	return &last, nil
}

func (s *InMemoryStore) ListBetween(_ context.Context, employeeID id.EmployeeID, from, to time.Time) ([]models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LogEntry
	for _, e := range s.logs[employeeID] {
		if !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Append(ctx context.Context, entry *models.LogEntry) error {
	if err := checkEntry(entry); err != nil {
		return err
	}

	var site *wfmodels.Site
	if s.assignments != nil {
		assigned, err := s.assignments.ListAssignments(ctx, entry.EmployeeID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		idx := slices.IndexFunc(assigned, func(a wfmodels.Assignment) bool {
			return a.Site.ID == entry.SiteID
		})
		if idx < 0 {
			return dErrors.New(dErrors.CodeForbidden, ErrSiteNotAssigned)
		}
		site = &assigned[idx].Site
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.logs[entry.EmployeeID]
	var last *models.LogEntry
	if len(entries) > 0 {
		last = &entries[len(entries)-1]
	}
	if err := checkSequence(last, entry.Action); err != nil {
		return err
	}
	if site != nil {
		if err := checkPolicy(*site, entry); err != nil {
			return err
		}
	}

	entries = append(entries, *entry)
	slices.SortStableFunc(entries, func(a, b models.LogEntry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	s.logs[entry.EmployeeID] = entries
	return nil
}
