package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"anima/internal/workforce/models"
	wfservice "anima/internal/workforce/service"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/httputil"
	"anima/pkg/requestcontext"
)

type assignmentsResponse struct {
	Assignments []models.Assignment `json:"assignments"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func employeeIDParam(r *http.Request) (id.EmployeeID, error) {
	return id.ParseEmployeeID(chi.URLParam(r, "employeeID"))
}

func (h *Handler) handleReplaceAssignments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, err := employeeIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req wfservice.ReplaceAssignmentsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	assignments, err := h.admin.ReplaceAssignments(ctx, employeeID, req)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to replace assignments",
			"employee_id", employeeID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assignmentsResponse{Assignments: assignments})
}

func (h *Handler) handleSetEmployeeActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID, err := employeeIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req setActiveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Active == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "active is required"))
		return
	}
	employee, err := h.admin.SetEmployeeActive(ctx, employeeID, *req.Active)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, employee)
}
