// Package httptransport exposes the attendance core over HTTP and a
// websocket watch. Handlers only translate requests; every decision lives in
// the workspace services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"anima/internal/device"
	"anima/internal/platform/middleware"
	"anima/internal/workforce/models"
	wfservice "anima/internal/workforce/service"
	"anima/internal/workspace"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/httputil"
	"anima/pkg/requestcontext"
)

// Workspaces hands out the per-user runtime.
type Workspaces interface {
	For(userID id.UserID) (*workspace.Workspace, error)
}

// SiteSelector stores a pending disambiguation choice.
type SiteSelector interface {
	Select(ctx context.Context, userID id.UserID, siteID id.SiteID) error
}

// EmployeeAdmin is the manager surface of the workforce registry.
type EmployeeAdmin interface {
	ReplaceAssignments(ctx context.Context, employeeID id.EmployeeID, req wfservice.ReplaceAssignmentsRequest) ([]models.Assignment, error)
	SetEmployeeActive(ctx context.Context, employeeID id.EmployeeID, active bool) (*models.Employee, error)
}

// Handler serves the /v1 API.
type Handler struct {
	workspaces Workspaces
	selections SiteSelector
	admin      EmployeeAdmin
	devices    *device.Service
	logger     *slog.Logger
	now        func() time.Time
	upgrader   websocket.Upgrader
}

func New(workspaces Workspaces, selections SiteSelector, admin EmployeeAdmin, devices *device.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if devices == nil {
		devices = device.NewService(false)
	}
	return &Handler{
		workspaces: workspaces,
		selections: selections,
		admin:      admin,
		devices:    devices,
		logger:     logger,
		now:        time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Mobile clients send no Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Register mounts the authenticated routes on r.
func (h *Handler) Register(r chi.Router, validator middleware.JWTValidator) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, h.logger))

		r.Post("/location/fixes", h.handlePushFixes)

		r.Post("/geofence/evaluate", h.handleEvaluate)
		r.Get("/geofence/state", h.handleGeofenceState)
		r.Get("/geofence/watch", h.handleWatch)

		r.Post("/sites/selection", h.handleSelectSite)

		r.Post("/attendance/check-in", h.handleCheckIn)
		r.Post("/attendance/check-out", h.handleCheckOut)
		r.Get("/attendance/today", h.handleToday)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(requestcontext.RoleManager, h.logger))
			r.Put("/admin/employees/{employeeID}/sites", h.handleReplaceAssignments)
			r.Patch("/admin/employees/{employeeID}", h.handleSetEmployeeActive)
		})
	})
}

// workspace resolves the caller's runtime, writing the error response when
// it cannot.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return nil, false
	}
	ws, err := h.workspaces.For(userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to open workspace",
			"user_id", userID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open workspace"))
		return nil, false
	}
	return ws, true
}
