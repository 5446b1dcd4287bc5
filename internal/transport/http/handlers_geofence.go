package httptransport

import (
	"net/http"

	"anima/internal/geofence"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/httputil"
)

type evaluateRequest struct {
	Mode   string `json:"mode,omitempty"`
	SiteID string `json:"site_id,omitempty"`
	Force  bool   `json:"force"`
}

// parseMode accepts an empty mode, which lets the engine infer it from the
// last log entry.
func parseMode(raw string) (geofence.Mode, error) {
	mode := geofence.Mode(raw)
	if raw != "" && !mode.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "mode must be check_in or check_out")
	}
	return mode, nil
}

func parseOptionalSiteID(raw string) (id.SiteID, error) {
	if raw == "" {
		return id.SiteID{}, nil
	}
	return id.ParseSiteID(raw)
}

func (r evaluateRequest) toRequest() (geofence.Request, error) {
	mode, err := parseMode(r.Mode)
	if err != nil {
		return geofence.Request{}, err
	}
	siteID, err := parseOptionalSiteID(r.SiteID)
	if err != nil {
		return geofence.Request{}, err
	}
	return geofence.Request{Mode: mode, SiteID: siteID, Force: r.Force}, nil
}

// handleEvaluate blocks until the engine has a verdict. The phone must keep
// pushing fixes while the request is open.
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var body evaluateRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws.Engine.Evaluate(r.Context(), req))
}

func (h *Handler) handleGeofenceState(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws.Engine.Current())
}
