package httptransport

import (
	"fmt"
	"net/http"

	"anima/internal/device"
	"anima/internal/location"
	"anima/internal/positioning"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/httputil"
	"anima/pkg/requestcontext"
)

// maxFixesPerPush matches what one acquisition can consume.
const maxFixesPerPush = 16

// statusReport is what the phone says about its positioning stack.
type statusReport struct {
	PermissionGranted bool          `json:"permission_granted"`
	ServicesEnabled   bool          `json:"services_enabled"`
	Device            device.Report `json:"device"`
}

type pushFixesRequest struct {
	Status *statusReport  `json:"status,omitempty"`
	Fixes  []location.Fix `json:"fixes"`
}

type pushFixesResponse struct {
	Accepted int `json:"accepted"`
}

func validateFix(i int, fix location.Fix) error {
	switch {
	case fix.Latitude < -90 || fix.Latitude > 90:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("fixes[%d]: latitude out of range", i))
	case fix.Longitude < -180 || fix.Longitude > 180:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("fixes[%d]: longitude out of range", i))
	case fix.Accuracy < 0:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("fixes[%d]: accuracy must not be negative", i))
	}
	return nil
}

func (r *pushFixesRequest) validate() error {
	if r.Status == nil && len(r.Fixes) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "status or fixes are required")
	}
	if len(r.Fixes) > maxFixesPerPush {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("at most %d fixes per request", maxFixesPerPush))
	}
	for i, fix := range r.Fixes {
		if err := validateFix(i, fix); err != nil {
			return err
		}
	}
	return nil
}

// applyStatus records the reported device status on the feed.
func (h *Handler) applyStatus(feed *positioning.Feed, userAgent string, report statusReport) {
	feed.UpdateStatus(positioning.Status{
		PermissionGranted: report.PermissionGranted,
		ServicesEnabled:   report.ServicesEnabled,
		PhysicalDevice:    report.Device.PhysicalDevice,
		Device:            h.devices.Describe(userAgent, report.Device),
	})
}

func (h *Handler) handlePushFixes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req pushFixesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	if req.Status != nil {
		h.applyStatus(ws.Feed, requestcontext.UserAgent(ctx), *req.Status)
	}
	now := requestcontext.Now(ctx)
	for _, fix := range req.Fixes {
		ws.Feed.Push(positioning.Stamp(fix, now))
	}
	httputil.WriteJSON(w, http.StatusAccepted, pushFixesResponse{Accepted: len(req.Fixes)})
}
