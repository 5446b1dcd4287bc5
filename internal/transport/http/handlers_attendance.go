package httptransport

import (
	"net/http"

	"anima/internal/attendance"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/httputil"
	"anima/pkg/requestcontext"
)

const maxNotesLength = 500

type checkInRequest struct {
	SiteID string `json:"site_id,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

func (r checkInRequest) toOptions() (attendance.CheckInOptions, error) {
	siteID, err := parseOptionalSiteID(r.SiteID)
	if err != nil {
		return attendance.CheckInOptions{}, err
	}
	if len(r.Notes) > maxNotesLength {
		return attendance.CheckInOptions{}, dErrors.New(dErrors.CodeInvalidInput, "notes are too long")
	}
	return attendance.CheckInOptions{SiteID: siteID, Notes: r.Notes}, nil
}

type selectSiteRequest struct {
	SiteID string `json:"site_id"`
}

// resultStatus maps an action result to a status. The body always carries
// the result so the app can show its message.
func resultStatus(res *attendance.Result) int {
	switch {
	case res.Success:
		return http.StatusCreated
	case res.Offline:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var body checkInRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	opts, err := body.toOptions()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	res := ws.Attendance.CheckIn(r.Context(), opts)
	httputil.WriteJSON(w, resultStatus(res), res)
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	res := ws.Attendance.CheckOut(r.Context())
	httputil.WriteJSON(w, resultStatus(res), res)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	state, err := ws.Attendance.LoadTodayAttendance(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load today's attendance",
			"user_id", ws.UserID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) handleSelectSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body selectSiteRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	siteID, err := id.ParseSiteID(body.SiteID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.selections.Select(ctx, requestcontext.UserID(ctx), siteID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
