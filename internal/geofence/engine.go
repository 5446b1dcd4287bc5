// Package geofence decides whether an employee may check in or out right now.
//
// The Engine resolves the work site (disambiguating co-located sites by
// distance), acquires a validated location, and applies the accuracy-padded
// radius gate of the mode's Policy. Every evaluation publishes a new State;
// the last terminal State doubles as a short-lived cache.
package geofence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	attmodels "anima/internal/attendance/models"
	"anima/internal/geo"
	"anima/internal/geofence/metrics"
	"anima/internal/location"
	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
	"anima/pkg/platform/sentinel"
)

// Engine evaluates geofence verdicts for one user. One evaluation runs at a
// time; a concurrent call gets a checking state for its own request back.
type Engine struct {
	userID   id.UserID
	sessions SessionSource
	sites    SiteRegistry
	logs     LogReader
	acquirer Acquirer
	devices  DeviceInfoSource

	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	now          func() time.Time
	tieRule      geo.TieRule
	region       geo.Region
	strictRegion bool

	running  atomic.Bool
	watching atomic.Bool

	mu           sync.RWMutex
	current      *State
	cached       *State
	observers    map[int]Observer
	nextObserver int
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithClock injects the time source used for cache expiry and freshness.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithTieRule(rule geo.TieRule) Option {
	return func(e *Engine) {
		e.tieRule = rule
	}
}

// WithRegion sets the expected operating region. Out-of-region site
// coordinates are logged, and fail the evaluation when strict is set.
func WithRegion(region geo.Region, strict bool) Option {
	return func(e *Engine) {
		e.region = region
		e.strictRegion = strict
	}
}

func WithDeviceInfo(src DeviceInfoSource) Option {
	return func(e *Engine) {
		e.devices = src
	}
}

// WithObserver registers fn to receive every published state.
func WithObserver(fn Observer) Option {
	return func(e *Engine) {
		e.addObserver(fn)
	}
}

// Subscribe registers fn for published states until the returned func is called.
func (e *Engine) Subscribe(fn Observer) (unsubscribe func()) {
	e.mu.Lock()
	key := e.addObserver(fn)
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.observers, key)
		e.mu.Unlock()
	}
}

func (e *Engine) addObserver(fn Observer) int {
	key := e.nextObserver
	e.nextObserver++
	e.observers[key] = fn
	return key
}

func New(userID id.UserID, sessions SessionSource, sites SiteRegistry, logs LogReader, acquirer Acquirer, opts ...Option) (*Engine, error) {
	if sessions == nil {
		return nil, errors.New("session source is required")
	}
	if sites == nil {
		return nil, errors.New("site registry is required")
	}
	if logs == nil {
		return nil, errors.New("log reader is required")
	}
	if acquirer == nil {
		return nil, errors.New("location acquirer is required")
	}
	e := &Engine{
		userID:    userID,
		sessions:  sessions,
		sites:     sites,
		logs:      logs,
		acquirer:  acquirer,
		logger:    slog.Default(),
		tracer:    otel.Tracer("anima/geofence"),
		now:       time.Now,
		tieRule:   geo.DefaultTieRule,
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current = &State{Status: StatusIdle, UpdatedAt: e.now()}
	return e, nil
}

// Current returns the latest published state.
func (e *Engine) Current() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Evaluate produces a verdict for req. It never returns nil and never panics;
// failures become StatusError states.
func (e *Engine) Evaluate(ctx context.Context, req Request) *State {
	if !e.running.CompareAndSwap(false, true) {
		return e.inProgress(req)
	}

	start := e.now()
	ctx, span := e.tracer.Start(ctx, "geofence.Evaluate", trace.WithAttributes(
		attribute.String("mode", string(req.Mode)),
		attribute.Bool("force", req.Force),
		attribute.Bool("presampled", req.Location != nil),
	))
	defer span.End()

	e.publish(e.inProgress(req), false)

	state := e.evaluateSafely(ctx, req)
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = e.now()
	}
	// observers may block; a caller arriving meanwhile starts its own
	// evaluation instead of picking up this verdict
	e.running.Store(false)
	e.publish(state, true)

	span.SetAttributes(
		attribute.String("status", string(state.Status)),
		attribute.Bool("can_proceed", state.CanProceed),
	)
	if state.Status == StatusError {
		span.SetStatus(codes.Error, state.Message)
	}
	e.metrics.IncrementVerdict(string(state.Mode), string(state.Status))
	e.metrics.ObserveEvaluateLatency(time.Since(start))
	return state
}

// inProgress is the checking state for req. Concurrent callers get their own
// copy so they never see a verdict computed for another request.
func (e *Engine) inProgress(req Request) *State {
	return &State{
		Status:    StatusChecking,
		Mode:      req.Mode,
		SiteID:    req.SiteID,
		Message:   msgChecking,
		UpdatedAt: e.now(),
	}
}

func (e *Engine) evaluateSafely(ctx context.Context, req Request) (state *State) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "geofence evaluation panicked",
				"user_id", e.userID,
				"panic", fmt.Sprint(r),
			)
			state = e.fail(req.Mode, StatusError, msgUnexpected)
		}
	}()
	return e.evaluate(ctx, req)
}

func (e *Engine) evaluate(ctx context.Context, req Request) *State {
	session, err := e.sessions.Session(ctx, e.userID)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to load session", "user_id", e.userID, "error", err)
		return e.fail(req.Mode, StatusError, msgSessionFailed)
	}
	if !session.Authenticated() {
		return e.fail(req.Mode, StatusError, msgUnauthenticated)
	}
	if len(session.Sites) == 0 {
		if !session.SitesLoaded {
			return e.fail(req.Mode, StatusBlocked, msgSitesLoading)
		}
		return e.fail(req.Mode, StatusBlocked, msgNoSitesAssigned)
	}

	last, err := e.lastLog(ctx, session.Employee.ID)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to load last attendance log",
			"employee_id", session.Employee.ID,
			"error", err,
		)
		return e.fail(req.Mode, StatusError, msgLastLogFailed)
	}
	mode := req.Mode
	if !mode.IsValid() {
		var lastAction attmodels.Action
		if last != nil {
			lastAction = last.Action
		}
		mode = InferMode(lastAction)
	}
	policy := PolicyFor(mode)

	siteID, loc, verdict := e.resolveSite(ctx, session, mode, req, last, policy)
	if verdict != nil {
		return verdict
	}
	if siteID.IsNil() {
		return e.fail(mode, StatusBlocked, msgNoSiteResolved)
	}

	if !req.Force {
		if cached := e.reusable(mode, siteID); cached != nil {
			return cached
		}
	}

	site, err := e.sites.FindSite(ctx, siteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return e.failSite(mode, siteID, "", StatusError, msgSiteGone)
		}
		e.logger.ErrorContext(ctx, "failed to read site", "site_id", siteID, "error", err)
		return e.failSite(mode, siteID, "", StatusError, msgSiteLookupFailed)
	}
	if !site.RequiresGeolocation() {
		return &State{
			Status:     StatusReady,
			CanProceed: true,
			Mode:       mode,
			SiteID:     site.ID,
			SiteName:   site.Name,
			Message:    msgNoGeolocation(site.Name),
			UpdatedAt:  e.now(),
			DeviceInfo: e.auditPayload(ctx, mode, site.ID, nil, 0, 0, policy),
		}
	}
	if !site.HasCoordinates() {
		return e.failSite(mode, site.ID, site.Name, StatusError, msgMissingCoordinates(site.Name))
	}
	if !e.regionOK(ctx, site) {
		return e.failSite(mode, site.ID, site.Name, StatusError, msgOutOfRegion(site.Name))
	}

	if loc == nil {
		var failed *State
		loc, failed = e.locate(ctx, req, mode, policy)
		if failed != nil {
			failed.SiteID, failed.SiteName = site.ID, site.Name
			return failed
		}
	}
	return e.gate(ctx, mode, site, loc, policy)
}

// gate applies the spoofing, accuracy and accuracy-padded distance checks.
func (e *Engine) gate(ctx context.Context, mode Mode, site *wfmodels.Site, loc *location.ValidatedLocation, policy Policy) *State {
	state := &State{
		Mode:           mode,
		SiteID:         site.ID,
		SiteName:       site.Name,
		AccuracyMeters: f64(loc.AccuracyMeters),
		Location:       loc,
		UpdatedAt:      e.now(),
	}

	if !loc.IsValid {
		state.Status = StatusBlocked
		state.Message = msgSpoofing
		state.ErrorCode = string(location.CodeSpoofingDetected)
		return state
	}
	if loc.AccuracyMeters > policy.MaxAccuracyMeters {
		state.Status = StatusBlocked
		state.Message = msgAccuracyTooLow(loc.AccuracyMeters, policy.MaxAccuracyMeters)
		state.ErrorCode = string(location.CodeAccuracyTooLow)
		return state
	}

	here := geo.Point{Lat: loc.Latitude, Lon: loc.Longitude}
	if problems := geo.CheckCoordinates(here, e.region); len(problems) > 0 {
		e.logger.WarnContext(ctx, "suspicious device coordinates",
			"user_id", e.userID,
			"problems", problems,
		)
	}
	distance := geo.Distance(here, site.Point())
	radius := geo.EffectiveRadius(site.RadiusMeters, policy.RadiusCapMeters)
	state.DistanceMeters = f64(distance)
	state.EffectiveRadiusMeters = f64(radius)

	if !geo.InRange(distance, loc.AccuracyMeters, radius) {
		state.Status = StatusBlocked
		state.Message = msgOutOfRange(site.Name, distance, loc.AccuracyMeters, radius)
		return state
	}

	state.Status = StatusReady
	state.CanProceed = true
	state.Message = msgReady(site.Name, distance)
	state.DeviceInfo = e.auditPayload(ctx, mode, site.ID, loc, distance, radius, policy)
	return state
}

// locate returns the caller-supplied reading when it is fresh, otherwise
// samples the device with the mode's policy.
func (e *Engine) locate(ctx context.Context, req Request, mode Mode, policy Policy) (*location.ValidatedLocation, *State) {
	if req.Location != nil {
		age := req.Location.Age(e.now())
		if age <= location.MaxSampleAge {
			return req.Location, nil
		}
		e.logger.DebugContext(ctx, "ignoring stale presampled location", "age", age)
	}

	loc, err := e.acquirer.Acquire(ctx, policy.AcquireOptions())
	if err != nil {
		code, _ := location.CodeOf(err)
		return nil, &State{
			Status:    StatusBlocked,
			Mode:      mode,
			Message:   location.MessageOf(err, msgLocationFailed),
			ErrorCode: string(code),
			Location:  loc,
			UpdatedAt: e.now(),
		}
	}
	return loc, nil
}

func (e *Engine) lastLog(ctx context.Context, employeeID id.EmployeeID) (*attmodels.LogEntry, error) {
	last, err := e.logs.LastLog(ctx, employeeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return last, nil
}

// reusable returns the cached verdict when it is a proceedable ready state
// for the same mode and site no older than CacheTTL.
func (e *Engine) reusable(mode Mode, siteID id.SiteID) *State {
	e.mu.RLock()
	cached := e.cached
	e.mu.RUnlock()
	if cached == nil {
		return nil
	}
	if cached.Status != StatusReady || !cached.CanProceed || cached.RequiresSelection {
		return nil
	}
	if cached.Mode != mode || cached.SiteID != siteID {
		return nil
	}
	if e.now().Sub(cached.UpdatedAt) > CacheTTL {
		return nil
	}
	return cached
}

func (e *Engine) regionOK(ctx context.Context, site *wfmodels.Site) bool {
	problems := geo.CheckCoordinates(site.Point(), e.region)
	if len(problems) == 0 {
		return true
	}
	e.logger.WarnContext(ctx, "site coordinates failed sanity check",
		"site_id", site.ID,
		"problems", problems,
		"strict", e.strictRegion,
	)
	return !e.strictRegion
}

func (e *Engine) auditPayload(ctx context.Context, mode Mode, siteID id.SiteID, loc *location.ValidatedLocation, distance, radius float64, policy Policy) *AuditPayload {
	payload := &AuditPayload{
		Warnings: []string{},
		Geofence: GeofenceAudit{
			Mode:                  mode,
			SiteID:                siteID,
			DistanceMeters:        distance,
			EffectiveRadiusMeters: radius,
			MaxAccuracyMeters:     policy.MaxAccuracyMeters,
		},
	}
	if e.devices != nil {
		payload.Device = e.devices.DeviceInfo(ctx)
	}
	payload.Device.PhysicalDevice = e.acquirer.IsPhysicalDevice()
	if loc != nil {
		payload.Warnings = loc.Warnings
		payload.Geofence.AccuracyMeters = loc.AccuracyMeters
	}
	return payload
}

func (e *Engine) publish(state *State, terminal bool) {
	e.mu.Lock()
	e.current = state
	if terminal {
		e.cached = state
	}
	observers := make([]Observer, 0, len(e.observers))
	for _, fn := range e.observers {
		observers = append(observers, fn)
	}
	e.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

func (e *Engine) fail(mode Mode, status Status, message string) *State {
	return &State{Status: status, Mode: mode, Message: message, UpdatedAt: e.now()}
}

func (e *Engine) failSite(mode Mode, siteID id.SiteID, siteName string, status Status, message string) *State {
	s := e.fail(mode, status, message)
	s.SiteID = siteID
	s.SiteName = siteName
	return s
}
