package notify

import (
	"context"
	"log/slog"
	"time"

	"anima/internal/attendance/models"
	id "anima/pkg/domain"
)

// LogNotifier writes events to the structured log. Used when no broker is
// configured.
type LogNotifier struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, now: time.Now}
}

func (n *LogNotifier) AttendanceRecorded(ctx context.Context, entry models.LogEntry) error {
	n.log(ctx, recordedEvent(entry))
	return nil
}

func (n *LogNotifier) AttendanceFailed(ctx context.Context, employeeID id.EmployeeID, action models.Action, reason string) error {
	n.log(ctx, failedEvent(employeeID, action, reason, n.now().UTC()))
	return nil
}

func (n *LogNotifier) log(ctx context.Context, event Event) {
	attrs := []any{
		"type", event.Type,
		"employee_id", event.EmployeeID,
		"action", event.Action,
	}
	if event.SiteID != nil {
		attrs = append(attrs, "site_id", *event.SiteID)
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	n.logger.InfoContext(ctx, "attendance event", attrs...)
}
