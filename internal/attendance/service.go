// Package attendance records check-ins and check-outs behind a forced
// geofence verdict and rebuilds the employee's daily attendance state.
package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"anima/internal/attendance/metrics"
	"anima/internal/attendance/models"
	"anima/internal/geofence"
	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
	"anima/pkg/platform/retry"
	"anima/pkg/platform/sentinel"
)

// DefaultRetryPolicy absorbs GPS convergence: the first evaluation plus four
// retries, 1.5s apart, within 8s.
var DefaultRetryPolicy = retry.Policy{
	MaxAttempts: 5,
	Delay:       1500 * time.Millisecond,
	Budget:      8 * time.Second,
}

type CheckInOptions struct {
	SiteID id.SiteID
	Notes  string
}

// Result is the outcome of an attendance action. Error is a message for the
// employee; Offline marks failures that look like lost connectivity.
type Result struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Offline  bool             `json:"offline,omitempty"`
	Entry    *models.LogEntry `json:"entry,omitempty"`
	Today    *models.State    `json:"today,omitempty"`
	Geofence *geofence.State  `json:"geofence,omitempty"`
}

// Service runs attendance actions for one user. At most one action is in
// flight; a concurrent call fails immediately.
type Service struct {
	userID     id.UserID
	sessions   SessionSource
	evaluator  Evaluator
	logs       LogStore
	selections SelectionStore
	notifier   Notifier

	logger   *slog.Logger
	metrics  *metrics.Metrics
	location *time.Location
	now      func() time.Time
	policy   retry.Policy

	inFlight atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithSelections consumes a pending site choice when CheckIn has no site.
func WithSelections(store SelectionStore) Option {
	return func(s *Service) {
		s.selections = store
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLocation sets the timezone that bounds "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.location = loc
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func NewService(userID id.UserID, sessions SessionSource, evaluator Evaluator, logs LogStore, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("session source is required")
	}
	if evaluator == nil {
		return nil, errors.New("geofence evaluator is required")
	}
	if logs == nil {
		return nil, errors.New("log store is required")
	}

	s := &Service{
		userID:    userID,
		sessions:  sessions,
		evaluator: evaluator,
		logs:      logs,
		logger:    slog.Default(),
		location:  time.UTC,
		now:       time.Now,
		policy:    DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckIn records a check-in at the site the geofence engine resolves, or at
// opts.SiteID when set.
func (s *Service) CheckIn(ctx context.Context, opts CheckInOptions) *Result {
	if !s.inFlight.CompareAndSwap(false, true) {
		return &Result{Error: msgActionInProgress}
	}
	defer s.inFlight.Store(false)

	employee, res := s.activeEmployee(ctx, models.ActionCheckIn)
	if res != nil {
		return res
	}

	last, err := s.lastLog(ctx, employee.ID)
	if err != nil {
		return s.fail(ctx, employee.ID, models.ActionCheckIn, err)
	}
	if last != nil && last.Action == models.ActionCheckIn {
		return s.reject(ctx, employee.ID, models.ActionCheckIn, msgAlreadyCheckedIn, nil)
	}

	siteID := opts.SiteID
	if siteID.IsNil() {
		siteID = s.pendingSelection(ctx)
	}

	return s.record(ctx, employee, models.ActionCheckIn, geofence.ModeCheckIn, siteID, opts.Notes)
}

// CheckOut closes the open check-in. The verdict is evaluated against the
// site of that check-in, not the nearest site.
func (s *Service) CheckOut(ctx context.Context) *Result {
	if !s.inFlight.CompareAndSwap(false, true) {
		return &Result{Error: msgActionInProgress}
	}
	defer s.inFlight.Store(false)

	employee, res := s.activeEmployee(ctx, models.ActionCheckOut)
	if res != nil {
		return res
	}

	last, err := s.lastLog(ctx, employee.ID)
	if err != nil {
		return s.fail(ctx, employee.ID, models.ActionCheckOut, err)
	}
	if last == nil || last.Action != models.ActionCheckIn {
		return s.reject(ctx, employee.ID, models.ActionCheckOut, msgNoOpenCheckIn, nil)
	}

	return s.record(ctx, employee, models.ActionCheckOut, geofence.ModeCheckOut, last.SiteID, "")
}

// LoadTodayAttendance rebuilds today's attendance state from the log.
func (s *Service) LoadTodayAttendance(ctx context.Context) (*models.State, error) {
	session, err := s.sessions.Session(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated() {
		state := models.State{Status: models.StatusNotCheckedIn}
		return &state, nil
	}
	return s.today(ctx, session.Employee.ID)
}

func (s *Service) today(ctx context.Context, employeeID id.EmployeeID) (*models.State, error) {
	from, to := dayBounds(s.now(), s.location)
	entries, err := s.logs.ListBetween(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	last, err := s.lastLog(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	state := BuildState(entries, last)
	return &state, nil
}

func (s *Service) activeEmployee(ctx context.Context, action models.Action) (*wfmodels.Employee, *Result) {
	session, err := s.sessions.Session(ctx, s.userID)
	if err != nil {
		return nil, s.fail(ctx, id.EmployeeID{}, action, err)
	}
	if !session.Authenticated() {
		s.metrics.IncrementAction(string(action), metrics.OutcomeBlocked)
		return nil, &Result{Error: msgNotAuthenticated}
	}
	if !session.Employee.Active {
		return nil, s.reject(ctx, session.Employee.ID, action, msgInactiveEmployee, nil)
	}
	return session.Employee, nil
}

func (s *Service) lastLog(ctx context.Context, employeeID id.EmployeeID) (*models.LogEntry, error) {
	last, err := s.logs.LastLog(ctx, employeeID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return last, err
}

func (s *Service) pendingSelection(ctx context.Context) id.SiteID {
	if s.selections == nil {
		return id.SiteID{}
	}
	siteID, err := s.selections.Take(ctx, s.userID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to read pending site selection",
				"user_id", s.userID,
				"error", err,
			)
		}
		return id.SiteID{}
	}
	return siteID
}

// record forces a verdict, retrying while the engine is still checking, and
// appends the entry when the verdict lets the employee proceed.
func (s *Service) record(ctx context.Context, employee *wfmodels.Employee, action models.Action, mode geofence.Mode, siteID id.SiteID, notes string) *Result {
	req := geofence.Request{Mode: mode, SiteID: siteID, Force: true}
	state, err := retry.Until(ctx, s.policy,
		func(ctx context.Context) *geofence.State {
			return s.evaluator.Evaluate(ctx, req)
		},
		func(st *geofence.State) bool {
			return answers(req, st)
		},
	)
	if err != nil && !errors.Is(err, retry.ErrExhausted) {
		return s.fail(ctx, employee.ID, action, err)
	}
	if !answers(req, state) {
		return s.reject(ctx, employee.ID, action, msgVerificationTimedOut, state)
	}
	if !state.CanProceed {
		return s.reject(ctx, employee.ID, action, state.Message, state)
	}

	entry, err := s.newEntry(employee.ID, action, state, notes)
	if err != nil {
		return s.fail(ctx, employee.ID, action, err)
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		res := s.fail(ctx, employee.ID, action, err)
		res.Geofence = state
		return res
	}

	s.logger.InfoContext(ctx, "attendance recorded",
		"employee_id", employee.ID,
		"site_id", entry.SiteID,
		"action", action,
	)
	s.metrics.IncrementAction(string(action), metrics.OutcomeSuccess)
	if s.notifier != nil {
		if err := s.notifier.AttendanceRecorded(ctx, *entry); err != nil {
			s.logger.WarnContext(ctx, "failed to notify attendance",
				"employee_id", employee.ID,
				"error", err,
			)
		}
	}

	result := &Result{Success: true, Entry: entry, Geofence: state}
	today, err := s.today(ctx, employee.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reload today's attendance",
			"employee_id", employee.ID,
			"error", err,
		)
		return result
	}
	result.Today = today
	return result
}

// answers reports whether st is a final verdict for req. A verdict for another
// mode or another requested site belongs to a different evaluation.
func answers(req geofence.Request, st *geofence.State) bool {
	if st == nil || !st.Status.IsTerminal() || st.Mode != req.Mode {
		return false
	}
	if !req.SiteID.IsNil() && !st.SiteID.IsNil() && st.SiteID != req.SiteID {
		return false
	}
	return true
}

func (s *Service) newEntry(employeeID id.EmployeeID, action models.Action, state *geofence.State, notes string) (*models.LogEntry, error) {
	entry := &models.LogEntry{
		ID:         id.LogID(uuid.New()),
		EmployeeID: employeeID,
		SiteID:     state.SiteID,
		Action:     action,
		Timestamp:  s.now().UTC(),
		Notes:      notes,
		Source:     models.SourceMobile,
	}
	if loc := state.Location; loc != nil {
		lat, lon, acc := loc.Latitude, loc.Longitude, loc.AccuracyMeters
		entry.Latitude = &lat
		entry.Longitude = &lon
		entry.AccuracyMeters = &acc
	}
	if state.DeviceInfo != nil {
		raw, err := json.Marshal(state.DeviceInfo)
		if err != nil {
			return nil, err
		}
		entry.DeviceInfo = raw
	}
	return entry, nil
}

// reject is a validation failure: the employee can act on the message.
func (s *Service) reject(ctx context.Context, employeeID id.EmployeeID, action models.Action, message string, state *geofence.State) *Result {
	s.metrics.IncrementAction(string(action), metrics.OutcomeBlocked)
	s.notifyFailure(ctx, employeeID, action, message)
	return &Result{Error: message, Geofence: state}
}

func (s *Service) fail(ctx context.Context, employeeID id.EmployeeID, action models.Action, err error) *Result {
	message, offline := classifyError(err)
	outcome := metrics.OutcomeFailed
	if offline {
		outcome = metrics.OutcomeOffline
	}
	s.metrics.IncrementAction(string(action), outcome)
	s.logger.ErrorContext(ctx, "attendance action failed",
		"employee_id", employeeID,
		"action", action,
		"offline", offline,
		"error", err,
	)
	s.notifyFailure(ctx, employeeID, action, message)
	return &Result{Error: message, Offline: offline}
}

func (s *Service) notifyFailure(ctx context.Context, employeeID id.EmployeeID, action models.Action, reason string) {
	if s.notifier == nil || employeeID.IsNil() {
		return
	}
	if err := s.notifier.AttendanceFailed(ctx, employeeID, action, reason); err != nil {
		s.logger.WarnContext(ctx, "failed to notify attendance failure",
			"employee_id", employeeID,
			"error", err,
		)
	}
}
