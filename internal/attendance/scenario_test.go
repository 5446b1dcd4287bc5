package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anima/internal/attendance"
	"anima/internal/attendance/models"
	attstore "anima/internal/attendance/store"
	"anima/internal/geofence"
	"anima/internal/location"
	"anima/internal/positioning"
	wfmodels "anima/internal/workforce/models"
	wfservice "anima/internal/workforce/service"
	wfstore "anima/internal/workforce/store"
	id "anima/pkg/domain"
)

func ptr(v float64) *float64 { return &v }

// A phone reporting a fix at the site's coordinates checks in, and today's
// state then shows the employee as checked in.
func TestSuccessfulCheckInScenario(t *testing.T) {
	ctx := context.Background()
	registry := wfstore.NewInMemoryStore()
	sessions, err := wfservice.NewSessionProvider(registry, nil)
	require.NoError(t, err)

	employee := &wfmodels.Employee{ID: id.EmployeeID(uuid.New()), UserID: id.UserID(uuid.New()), FullName: "Laura", Active: true}
	site := &wfmodels.Site{ID: id.SiteID(uuid.New()), Name: "Sede Centro", Latitude: ptr(4.7105), Longitude: ptr(-74.0725), RadiusMeters: 50}
	require.NoError(t, registry.SaveEmployee(ctx, employee))
	require.NoError(t, registry.SaveSite(ctx, site))
	require.NoError(t, registry.ReplaceAssignments(ctx, employee.ID, []id.SiteID{site.ID}, site.ID))

	logs := attstore.NewInMemoryStore(registry)
	feed := positioning.NewFeed()
	feed.UpdateStatus(positioning.Status{PermissionGranted: true, ServicesEnabled: true, PhysicalDevice: true})
	acquirer := location.NewAcquirer(feed, location.WithSamplePause(0))

	engine, err := geofence.New(employee.UserID, sessions, sessions, logs, acquirer)
	require.NoError(t, err)
	service, err := attendance.NewService(employee.UserID, sessions, engine, logs)
	require.NoError(t, err)

	feed.Push(location.Fix{Latitude: 4.7105, Longitude: -74.0725, Accuracy: 10, Timestamp: time.Now()})
	verdict := engine.Evaluate(ctx, geofence.Request{Mode: geofence.ModeCheckIn})
	require.Equal(t, geofence.StatusReady, verdict.Status, verdict.Message)
	assert.True(t, verdict.CanProceed)
	require.NotNil(t, verdict.DistanceMeters)
	assert.InDelta(t, 0, *verdict.DistanceMeters, 0.5)

	feed.Push(location.Fix{Latitude: 4.7105, Longitude: -74.0725, Accuracy: 10, Timestamp: time.Now()})
	res := service.CheckIn(ctx, attendance.CheckInOptions{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, site.ID, res.Entry.SiteID)

	today, err := service.LoadTodayAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, today.Status)
	assert.NotNil(t, today.OpenStartAt)

	res = service.CheckIn(ctx, attendance.CheckInOptions{})
	assert.False(t, res.Success)
}
