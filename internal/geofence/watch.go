package geofence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"anima/internal/location"
	id "anima/pkg/domain"
)

// ErrWatchActive is returned when an engine already has a running watch.
var ErrWatchActive = errors.New("geofence: a watch is already active")

const (
	WatchInterval       = 2500 * time.Millisecond
	WatchDistanceMeters = 5.0
	// WatchThrottle is the minimum spacing between watch-driven evaluations.
	WatchThrottle = 2 * time.Second
)

type WatchOptions struct {
	// Mode is inferred per evaluation when empty.
	Mode     Mode
	SiteID   id.SiteID
	Throttle time.Duration
}

// WatchSession re-evaluates the geofence as the device moves. It owns its
// position subscription and throttle timestamp; an engine admits one active
// session at a time.
type WatchSession struct {
	engine   *Engine
	device   location.Device
	opts     WatchOptions
	throttle time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Watching reports whether a watch session is running on the engine.
func (e *Engine) Watching() bool {
	return e.watching.Load()
}

// NewWatch prepares a session. Nothing runs until Start.
func (e *Engine) NewWatch(device location.Device, opts WatchOptions) *WatchSession {
	throttle := opts.Throttle
	if throttle == 0 {
		throttle = WatchThrottle
	}
	return &WatchSession{engine: e, device: device, opts: opts, throttle: throttle}
}

// Start subscribes to the device and evaluates each fix that passes the
// throttle. The session runs until Stop or until ctx is done.
func (w *WatchSession) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return ErrWatchActive
	}
	if !w.engine.watching.CompareAndSwap(false, true) {
		return ErrWatchActive
	}

	wctx, cancel := context.WithCancel(ctx)
	fixes, err := w.device.Watch(wctx, location.WatchOptions{
		Interval:       WatchInterval,
		DistanceMeters: WatchDistanceMeters,
	})
	if err != nil {
		cancel()
		w.engine.watching.Store(false)
		return fmt.Errorf("start position watch: %w", err)
	}

	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(wctx, fixes, w.done)
	return nil
}

// Stop cancels the subscription and waits for the loop to exit. It is safe
// to call more than once.
func (w *WatchSession) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the running loop exits.
func (w *WatchSession) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return w.done
}

func (w *WatchSession) run(ctx context.Context, fixes <-chan location.Fix, done chan struct{}) {
	defer close(done)
	defer w.engine.watching.Store(false)

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				return
			}
			now := w.engine.now()
			if !last.IsZero() && now.Sub(last) < w.throttle {
				continue
			}
			last = now
			w.engine.Evaluate(ctx, Request{
				Mode:     w.opts.Mode,
				SiteID:   w.opts.SiteID,
				Location: location.FromFix(fix, w.device.IsPhysicalDevice()),
				Force:    true,
			})
		}
	}
}
