package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"anima/internal/attendance/models"
	wfmodels "anima/internal/workforce/models"
	wfstore "anima/internal/workforce/store"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx      context.Context
	registry *wfstore.InMemoryStore
	store    *InMemoryStore
	employee id.EmployeeID
	site     *wfmodels.Site
	remote   *wfmodels.Site
	now      time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func ptr(v float64) *float64 { return &v }

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	s.registry = wfstore.NewInMemoryStore()
	s.store = NewInMemoryStore(s.registry)

	employee := &wfmodels.Employee{ID: id.EmployeeID(uuid.New()), UserID: id.UserID(uuid.New()), FullName: "Ana", Active: true}
	s.Require().NoError(s.registry.SaveEmployee(s.ctx, employee))
	s.employee = employee.ID

	s.site = &wfmodels.Site{ID: id.SiteID(uuid.New()), Name: "Centro", Latitude: ptr(4.710), Longitude: ptr(-74.072), RadiusMeters: 50}
	s.remote = &wfmodels.Site{ID: id.SiteID(uuid.New()), Name: "Remoto", RadiusMeters: 50}
	s.Require().NoError(s.registry.SaveSite(s.ctx, s.site))
	s.Require().NoError(s.registry.SaveSite(s.ctx, s.remote))
	s.Require().NoError(s.registry.ReplaceAssignments(s.ctx, s.employee, []id.SiteID{s.site.ID, s.remote.ID}, s.site.ID))
}

func (s *InMemoryStoreSuite) entry(action models.Action, siteID id.SiteID, at time.Time) *models.LogEntry {
	return &models.LogEntry{
		ID:             id.LogID(uuid.New()),
		EmployeeID:     s.employee,
		SiteID:         siteID,
		Action:         action,
		Timestamp:      at,
		Latitude:       ptr(4.710),
		Longitude:      ptr(-74.072),
		AccuracyMeters: ptr(8),
		Source:         models.SourceMobile,
	}
}

func (s *InMemoryStoreSuite) TestLastLogAndListBetween() {
	_, err := s.store.LastLog(s.ctx, s.employee)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActionCheckIn, s.site.ID, s.now.Add(-26*time.Hour))))
	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActionCheckOut, s.site.ID, s.now.Add(-20*time.Hour))))
	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActionCheckIn, s.site.ID, s.now.Add(-time.Hour))))

	last, err := s.store.LastLog(s.ctx, s.employee)
	s.Require().NoError(err)
	s.Equal(models.ActionCheckIn, last.Action)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	today, err := s.store.ListBetween(s.ctx, s.employee, day, day.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.Len(today, 1)
}

func (s *InMemoryStoreSuite) TestAppendRevalidates() {
	s.Run("unassigned site", func() {
		err := s.store.Append(s.ctx, s.entry(models.ActionCheckIn, id.SiteID(uuid.New()), s.now))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Contains(err.Error(), ErrSiteNotAssigned)
	})

	s.Run("check-out without check-in", func() {
		err := s.store.Append(s.ctx, s.entry(models.ActionCheckOut, s.site.ID, s.now))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("outside the padded radius", func() {
		e := s.entry(models.ActionCheckIn, s.site.ID, s.now)
		e.Latitude = ptr(4.7102) // ~22 m north
		err := s.store.Append(s.ctx, e)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("missing location at a geofenced site", func() {
		e := s.entry(models.ActionCheckIn, s.site.ID, s.now)
		e.AccuracyMeters = nil
		err := s.store.Append(s.ctx, e)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("site without coordinates accepts any location", func() {
		e := s.entry(models.ActionCheckIn, s.remote.ID, s.now)
		e.Latitude, e.Longitude, e.AccuracyMeters = nil, nil, nil
		s.Require().NoError(s.store.Append(s.ctx, e))
	})

	s.Run("double check-in", func() {
		err := s.store.Append(s.ctx, s.entry(models.ActionCheckIn, s.remote.ID, s.now.Add(time.Minute)))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid action", func() {
		err := s.store.Append(s.ctx, s.entry("lunch", s.site.ID, s.now))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *InMemoryStoreSuite) TestCheckOutPolicyIsLooser() {
	s.Require().NoError(s.store.Append(s.ctx, s.entry(models.ActionCheckIn, s.site.ID, s.now)))

	// 15 m away with 10 m accuracy fails the 20 m check-in cap but fits 30 m
	out := s.entry(models.ActionCheckOut, s.site.ID, s.now.Add(time.Hour))
	out.Latitude = ptr(4.710135)
	out.AccuracyMeters = ptr(10)
	s.Require().NoError(s.store.Append(s.ctx, out))
}
