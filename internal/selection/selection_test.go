package selection

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	wfmodels "anima/internal/workforce/models"
	wfservice "anima/internal/workforce/service"
	wfstore "anima/internal/workforce/store"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/sentinel"
)

type SelectionSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	store    *InMemoryStore
	registry *wfstore.InMemoryStore
	service  *Service
	employee *wfmodels.Employee
	site     id.SiteID
}

func TestSelectionSuite(t *testing.T) {
	suite.Run(t, new(SelectionSuite))
}

func (s *SelectionSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore()
	s.store.now = func() time.Time { return s.now }

	s.registry = wfstore.NewInMemoryStore()
	sessions, err := wfservice.NewSessionProvider(s.registry, nil)
	s.Require().NoError(err)

	s.employee = &wfmodels.Employee{ID: id.EmployeeID(uuid.New()), UserID: id.UserID(uuid.New()), Active: true}
	s.Require().NoError(s.registry.SaveEmployee(s.ctx, s.employee))
	site := &wfmodels.Site{ID: id.SiteID(uuid.New()), Name: "Chapinero A", RadiusMeters: 40}
	s.Require().NoError(s.registry.SaveSite(s.ctx, site))
	s.Require().NoError(s.registry.ReplaceAssignments(s.ctx, s.employee.ID, []id.SiteID{site.ID}, site.ID))
	s.site = site.ID

	s.service, err = NewService(s.store, sessions, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
}

func (s *SelectionSuite) TestNew() {
	s.Run("nil store", func() {
		_, err := NewService(nil, nil, 0, nil)
		s.Require().Error(err)
		s.Contains(err.Error(), "selection store is required")
	})
	s.Run("nil sessions", func() {
		_, err := NewService(s.store, nil, 0, nil)
		s.Require().Error(err)
		s.Contains(err.Error(), "session source is required")
	})
}

func (s *SelectionSuite) TestSelectThenTakeOnce() {
	s.Require().NoError(s.service.Select(s.ctx, s.employee.UserID, s.site))

	got, err := s.store.Take(s.ctx, s.employee.UserID)
	s.Require().NoError(err)
	s.Equal(s.site, got)

	_, err = s.store.Take(s.ctx, s.employee.UserID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SelectionSuite) TestSelectionExpires() {
	s.Require().NoError(s.service.Select(s.ctx, s.employee.UserID, s.site))
	s.now = s.now.Add(time.Minute)

	_, err := s.store.Take(s.ctx, s.employee.UserID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SelectionSuite) TestSelectRejects() {
	s.Run("unassigned site", func() {
		err := s.service.Select(s.ctx, s.employee.UserID, id.SiteID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
	s.Run("missing site", func() {
		err := s.service.Select(s.ctx, s.employee.UserID, id.SiteID{})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("unknown user", func() {
		err := s.service.Select(s.ctx, id.UserID(uuid.New()), s.site)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
