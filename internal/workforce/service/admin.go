package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"anima/internal/workforce/models"
	"anima/internal/workforce/store"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/sentinel"
	platformstrings "anima/pkg/platform/strings"
	"anima/pkg/requestcontext"
)

// AdminService lets managers administer team membership and site assignments.
type AdminService struct {
	store  store.Store
	logger *slog.Logger
}

func NewAdminService(st store.Store, logger *slog.Logger) (*AdminService, error) {
	if st == nil {
		return nil, errors.New("workforce store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{store: st, logger: logger}, nil
}

// ReplaceAssignmentsRequest sets the full site list of an employee. Primary
// defaults to the first listed site.
type ReplaceAssignmentsRequest struct {
	SiteIDs []string `json:"site_ids"`
	Primary string   `json:"primary_site_id"`
}

func (s *AdminService) ReplaceAssignments(ctx context.Context, employeeID id.EmployeeID, req ReplaceAssignmentsRequest) ([]models.Assignment, error) {
	if err := requireManager(ctx); err != nil {
		return nil, err
	}
	raw := platformstrings.DedupeAndTrim(req.SiteIDs)
	if len(raw) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one site is required")
	}
	siteIDs := make([]id.SiteID, 0, len(raw))
	for _, v := range raw {
		siteID, err := id.ParseSiteID(v)
		if err != nil {
			return nil, err
		}
		siteIDs = append(siteIDs, siteID)
	}

	primary := siteIDs[0]
	if req.Primary != "" {
		parsed, err := id.ParseSiteID(req.Primary)
		if err != nil {
			return nil, err
		}
		primary = parsed
	}
	if !slices.Contains(siteIDs, primary) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "primary site must be one of the assigned sites")
	}

	if err := s.store.ReplaceAssignments(ctx, employeeID, siteIDs, primary); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "employee or site not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace assignments")
	}
	s.logger.InfoContext(ctx, "site assignments replaced",
		"employee_id", employeeID,
		"sites", len(siteIDs),
		"actor_user_id", requestcontext.UserID(ctx),
	)

	assignments, err := s.store.ListAssignments(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("reload assignments: %w", err)
	}
	return assignments, nil
}

// SetEmployeeActive activates or deactivates an employee. Inactive employees
// cannot check in or out.
func (s *AdminService) SetEmployeeActive(ctx context.Context, employeeID id.EmployeeID, active bool) (*models.Employee, error) {
	if err := requireManager(ctx); err != nil {
		return nil, err
	}
	if err := s.store.SetEmployeeActive(ctx, employeeID, active); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "employee not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update employee")
	}
	s.logger.InfoContext(ctx, "employee status changed",
		"employee_id", employeeID,
		"active", active,
		"actor_user_id", requestcontext.UserID(ctx),
	)
	return s.store.FindEmployee(ctx, employeeID)
}

func requireManager(ctx context.Context) error {
	if requestcontext.Role(ctx) != requestcontext.RoleManager {
		return dErrors.New(dErrors.CodeForbidden, "manager role required")
	}
	return nil
}
