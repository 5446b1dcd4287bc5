// Package service exposes the workforce registry to the geofence engine and
// attendance actions (sessions, fresh site reads) and to managers (admin).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"anima/internal/workforce/models"
	"anima/internal/workforce/store"
	id "anima/pkg/domain"
	"anima/pkg/platform/sentinel"
)

// SessionProvider builds the authenticated session for a user.
type SessionProvider struct {
	store  store.Store
	logger *slog.Logger
}

func NewSessionProvider(st store.Store, logger *slog.Logger) (*SessionProvider, error) {
	if st == nil {
		return nil, errors.New("workforce store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionProvider{store: st, logger: logger}, nil
}

// Session loads the user's employee profile and assignments. A user without
// an employee profile yields an unauthenticated session, not an error. When
// assignments cannot be read the session is returned with SitesLoaded false.
func (p *SessionProvider) Session(ctx context.Context, userID id.UserID) (*models.Session, error) {
	session := &models.Session{UserID: userID}
	if userID.IsNil() {
		return session, nil
	}

	employee, err := p.store.FindEmployeeByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return session, nil
		}
		return nil, fmt.Errorf("load employee: %w", err)
	}
	session.Employee = employee

	sites, err := p.store.ListAssignments(ctx, employee.ID)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to load site assignments",
			"employee_id", employee.ID,
			"error", err,
		)
		return session, nil
	}
	session.Sites = sites
	session.SitesLoaded = true
	return session, nil
}

// FindSite reads the site registry directly.
func (p *SessionProvider) FindSite(ctx context.Context, siteID id.SiteID) (*models.Site, error) {
	return p.store.FindSite(ctx, siteID)
}
