package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	attstore "anima/internal/attendance/store"
	"anima/internal/geofence"
	"anima/internal/location"
	"anima/internal/platform/logger"
	"anima/internal/positioning"
	wfmodels "anima/internal/workforce/models"
	wfservice "anima/internal/workforce/service"
	wfstore "anima/internal/workforce/store"
	id "anima/pkg/domain"
)

type RegistrySuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	store    *wfstore.InMemoryStore
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s.store = wfstore.NewInMemoryStore()
	sessions, err := wfservice.NewSessionProvider(s.store, nil)
	s.Require().NoError(err)

	s.registry, err = NewRegistry(Dependencies{
		Sessions: sessions,
		Logs:     attstore.NewInMemoryStore(s.store),
		Logger:   logger.Discard(),
	})
	s.Require().NoError(err)
	s.registry.now = func() time.Time { return s.now }
}

func (s *RegistrySuite) TestNew() {
	s.Run("nil sessions", func() {
		_, err := NewRegistry(Dependencies{})
		s.Require().Error(err)
		s.Contains(err.Error(), "sessions are required")
	})
	s.Run("nil log store", func() {
		sessions, err := wfservice.NewSessionProvider(s.store, nil)
		s.Require().NoError(err)
		_, err = NewRegistry(Dependencies{Sessions: sessions})
		s.Require().Error(err)
		s.Contains(err.Error(), "attendance log store is required")
	})
}

func (s *RegistrySuite) TestForReusesWorkspace() {
	userID := id.UserID(uuid.New())
	first, err := s.registry.For(userID)
	s.Require().NoError(err)
	second, err := s.registry.For(userID)
	s.Require().NoError(err)

	s.Same(first, second)
	s.Equal(1, s.registry.Len())

	other, err := s.registry.For(id.UserID(uuid.New()))
	s.Require().NoError(err)
	s.NotSame(first, other)

	_, err = s.registry.For(id.UserID{})
	s.Error(err)
}

func (s *RegistrySuite) TestSweepKeepsActiveWatches() {
	idle, err := s.registry.For(id.UserID(uuid.New()))
	s.Require().NoError(err)
	watching, err := s.registry.For(id.UserID(uuid.New()))
	s.Require().NoError(err)

	_, err = watching.StartWatch(s.ctx, geofence.WatchOptions{})
	s.Require().NoError(err)
	defer watching.StopWatch()

	s.now = s.now.Add(time.Hour)
	s.Equal(1, s.registry.Sweep(30*time.Minute))
	s.Equal(1, s.registry.Len())

	again, err := s.registry.For(idle.UserID)
	s.Require().NoError(err)
	s.NotSame(idle, again)
}

// Fixes pushed into a workspace feed reach its engine.
func (s *RegistrySuite) TestFeedDrivesEngine() {
	lat, lon := 4.7105, -74.0725
	employee := &wfmodels.Employee{ID: id.EmployeeID(uuid.New()), UserID: id.UserID(uuid.New()), Active: true}
	site := &wfmodels.Site{ID: id.SiteID(uuid.New()), Name: "Centro", Latitude: &lat, Longitude: &lon, RadiusMeters: 50}
	s.Require().NoError(s.store.SaveEmployee(s.ctx, employee))
	s.Require().NoError(s.store.SaveSite(s.ctx, site))
	s.Require().NoError(s.store.ReplaceAssignments(s.ctx, employee.ID, []id.SiteID{site.ID}, site.ID))

	ws, err := s.registry.For(employee.UserID)
	s.Require().NoError(err)
	ws.Feed.UpdateStatus(positioning.Status{PermissionGranted: true, ServicesEnabled: true, PhysicalDevice: true})
	ws.Feed.Push(location.Fix{Latitude: lat, Longitude: lon, Accuracy: 6, Timestamp: time.Now()})

	state := ws.Engine.Evaluate(s.ctx, geofence.Request{Mode: geofence.ModeCheckIn})
	s.Equal(geofence.StatusReady, state.Status, state.Message)
	s.Equal(site.ID, state.SiteID)
}
