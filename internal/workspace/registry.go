// Package workspace assembles the per-employee runtime: the fix feed the phone
// pushes into, the geofence engine reading from it, the attendance service
// acting on the engine's verdicts, and the live watch.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"anima/internal/attendance"
	attmetrics "anima/internal/attendance/metrics"
	"anima/internal/geo"
	"anima/internal/geofence"
	gfmetrics "anima/internal/geofence/metrics"
	"anima/internal/location"
	"anima/internal/positioning"
	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
)

// Sessions serves both the session and the fresh site reads.
type Sessions interface {
	Session(ctx context.Context, userID id.UserID) (*wfmodels.Session, error)
	FindSite(ctx context.Context, siteID id.SiteID) (*wfmodels.Site, error)
}

// Dependencies are shared by every workspace.
type Dependencies struct {
	Sessions   Sessions
	Logs       attendance.LogStore
	Selections attendance.SelectionStore
	Notifier   attendance.Notifier

	Logger            *slog.Logger
	GeofenceMetrics   *gfmetrics.Metrics
	AttendanceMetrics *attmetrics.Metrics
	Location          *time.Location
	TieRule           geo.TieRule
	Region            geo.Region
	StrictRegion      bool
}

// Workspace is one employee's runtime.
type Workspace struct {
	UserID     id.UserID
	Feed       *positioning.Feed
	Engine     *geofence.Engine
	Attendance *attendance.Service

	mu       sync.Mutex
	lastUsed time.Time
	watch    *geofence.WatchSession
}

// StartWatch starts a live watch fed by the workspace feed. The watch stops
// when ctx is done or StopWatch is called.
func (w *Workspace) StartWatch(ctx context.Context, opts geofence.WatchOptions) (*geofence.WatchSession, error) {
	session := w.Engine.NewWatch(w.Feed, opts)
	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.watch = session
	w.mu.Unlock()
	return session, nil
}

// StopWatch stops the running watch, if any.
func (w *Workspace) StopWatch() {
	w.mu.Lock()
	session := w.watch
	w.watch = nil
	w.mu.Unlock()
	if session != nil {
		session.Stop()
	}
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastUsed = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// Registry creates workspaces on first use and keeps them until they go idle.
type Registry struct {
	deps Dependencies
	now  func() time.Time

	mu         sync.Mutex
	workspaces map[id.UserID]*Workspace
}

func NewRegistry(deps Dependencies) (*Registry, error) {
	if deps.Sessions == nil {
		return nil, errors.New("sessions are required")
	}
	if deps.Logs == nil {
		return nil, errors.New("attendance log store is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.TieRule == (geo.TieRule{}) {
		deps.TieRule = geo.DefaultTieRule
	}
	return &Registry{
		deps:       deps,
		now:        time.Now,
		workspaces: make(map[id.UserID]*Workspace),
	}, nil
}

// For returns the user's workspace, building it on first use.
func (r *Registry) For(userID id.UserID) (*Workspace, error) {
	if userID.IsNil() {
		return nil, errors.New("user id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.workspaces[userID]; ok {
		ws.touch(r.now())
		return ws, nil
	}
	ws, err := r.build(userID)
	if err != nil {
		return nil, err
	}
	ws.touch(r.now())
	r.workspaces[userID] = ws
	return ws, nil
}

func (r *Registry) build(userID id.UserID) (*Workspace, error) {
	logger := r.deps.Logger.With("user_id", userID)
	feed := positioning.NewFeed()

	acquirer := location.NewAcquirer(feed,
		location.WithLogger(logger),
		location.WithRecorder(r.deps.GeofenceMetrics),
	)
	engine, err := geofence.New(userID, r.deps.Sessions, r.deps.Sessions, r.deps.Logs, acquirer,
		geofence.WithLogger(logger),
		geofence.WithMetrics(r.deps.GeofenceMetrics),
		geofence.WithTieRule(r.deps.TieRule),
		geofence.WithRegion(r.deps.Region, r.deps.StrictRegion),
		geofence.WithDeviceInfo(feed),
	)
	if err != nil {
		return nil, err
	}

	opts := []attendance.Option{
		attendance.WithLogger(logger),
		attendance.WithMetrics(r.deps.AttendanceMetrics),
		attendance.WithLocation(r.deps.Location),
	}
	if r.deps.Selections != nil {
		opts = append(opts, attendance.WithSelections(r.deps.Selections))
	}
	if r.deps.Notifier != nil {
		opts = append(opts, attendance.WithNotifier(r.deps.Notifier))
	}
	service, err := attendance.NewService(userID, r.deps.Sessions, engine, r.deps.Logs, opts...)
	if err != nil {
		return nil, err
	}

	return &Workspace{
		UserID:     userID,
		Feed:       feed,
		Engine:     engine,
		Attendance: service,
	}, nil
}

// Len reports the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Sweep drops workspaces unused for longer than idle. Workspaces with a
// running watch are kept.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for userID, ws := range r.workspaces {
		if ws.Engine.Watching() || ws.idleSince().After(cutoff) {
			continue
		}
		delete(r.workspaces, userID)
		removed++
	}
	return removed
}
