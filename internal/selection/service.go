package selection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
)

// SessionSource loads the employee behind a user.
type SessionSource interface {
	Session(ctx context.Context, userID id.UserID) (*wfmodels.Session, error)
}

// Service records a disambiguation choice after checking the site is one of
// the employee's assignments.
type Service struct {
	store    Store
	sessions SessionSource
	ttl      time.Duration
	logger   *slog.Logger
}

func NewService(store Store, sessions SessionSource, ttl time.Duration, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("selection store is required")
	}
	if sessions == nil {
		return nil, errors.New("session source is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, sessions: sessions, ttl: ttl, logger: logger}, nil
}

// Select stores siteID as the user's pending choice.
func (s *Service) Select(ctx context.Context, userID id.UserID, siteID id.SiteID) error {
	if siteID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "site_id is required")
	}
	session, err := s.sessions.Session(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if !session.Authenticated() {
		return dErrors.New(dErrors.CodeUnauthorized, "employee profile not found")
	}
	if !session.HasSite(siteID) {
		return dErrors.New(dErrors.CodeForbidden, "site not assigned to employee")
	}
	if err := s.store.Put(ctx, userID, siteID, s.ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store site selection")
	}
	s.logger.InfoContext(ctx, "site selection stored",
		"employee_id", session.Employee.ID,
		"site_id", siteID,
	)
	return nil
}
