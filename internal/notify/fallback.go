package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"anima/internal/attendance/models"
	id "anima/pkg/domain"
	"anima/pkg/platform/circuit"
)

// DefaultProbeInterval spaces primary attempts while the breaker is open.
const DefaultProbeInterval = 30 * time.Second

// Notifier is implemented by every event sink in this package.
type Notifier interface {
	AttendanceRecorded(ctx context.Context, entry models.LogEntry) error
	AttendanceFailed(ctx context.Context, employeeID id.EmployeeID, action models.Action, reason string) error
}

// FallbackNotifier sends to the primary sink and switches to the fallback
// once the breaker opens. While open the primary is probed at most once per
// probe interval so a broker outage does not stall attendance actions.
type FallbackNotifier struct {
	primary  Notifier
	fallback Notifier
	breaker  *circuit.Breaker
	logger   *slog.Logger
	probe    time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastProbe time.Time
}

func NewFallbackNotifier(primary, fallback Notifier, breaker *circuit.Breaker, logger *slog.Logger) (*FallbackNotifier, error) {
	if primary == nil {
		return nil, errors.New("primary notifier is required")
	}
	if fallback == nil {
		return nil, errors.New("fallback notifier is required")
	}
	if breaker == nil {
		breaker = circuit.New("notifier")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackNotifier{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   logger,
		probe:    DefaultProbeInterval,
		now:      time.Now,
	}, nil
}

func (n *FallbackNotifier) AttendanceRecorded(ctx context.Context, entry models.LogEntry) error {
	return n.send(ctx, func(sink Notifier) error {
		return sink.AttendanceRecorded(ctx, entry)
	})
}

func (n *FallbackNotifier) AttendanceFailed(ctx context.Context, employeeID id.EmployeeID, action models.Action, reason string) error {
	return n.send(ctx, func(sink Notifier) error {
		return sink.AttendanceFailed(ctx, employeeID, action, reason)
	})
}

func (n *FallbackNotifier) send(ctx context.Context, deliver func(Notifier) error) error {
	if n.breaker.IsOpen() && !n.probeDue() {
		return deliver(n.fallback)
	}

	err := deliver(n.primary)
	if err == nil {
		if _, change := n.breaker.RecordSuccess(); change.Closed {
			n.logger.InfoContext(ctx, "notifier circuit closed", "breaker", n.breaker.Name())
		}
		return nil
	}

	_, change := n.breaker.RecordFailure()
	if change.Opened {
		n.logger.WarnContext(ctx, "notifier circuit opened", "breaker", n.breaker.Name(), "error", err)
	} else {
		n.logger.WarnContext(ctx, "primary notifier failed", "breaker", n.breaker.Name(), "error", err)
	}
	return deliver(n.fallback)
}

func (n *FallbackNotifier) probeDue() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	if now.Sub(n.lastProbe) < n.probe {
		return false
	}
	n.lastProbe = now
	return true
}
