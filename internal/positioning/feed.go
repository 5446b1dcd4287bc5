// Package positioning adapts the stream of readings pushed by the phone into
// the location.Device port consumed by the acquirer and the watch.
package positioning

import (
	"context"
	"errors"
	"sync"
	"time"

	"anima/internal/device"
	"anima/internal/geo"
	"anima/internal/location"
)

// ErrNoDevice is returned when a fix is requested before the phone reported
// any status.
var ErrNoDevice = errors.New("positioning: device has not reported status")

const queueSize = 16

// Status is what the phone reports about its positioning stack.
type Status struct {
	PermissionGranted bool
	ServicesEnabled   bool
	PhysicalDevice    bool
	Device            device.Info
}

type subscriber struct {
	ch   chan location.Fix
	opts location.WatchOptions
	last *location.Fix
}

// Feed is a location.Device backed by pushed fixes. CurrentFix waits for the
// next pushed fix; Watch subscribers receive every push that passes their
// interval and distance filter.
type Feed struct {
	mu          sync.Mutex
	status      Status
	reported    bool
	queue       chan location.Fix
	subscribers map[*subscriber]struct{}
}

func NewFeed() *Feed {
	return &Feed{
		queue:       make(chan location.Fix, queueSize),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// UpdateStatus records the latest device status.
func (f *Feed) UpdateStatus(status Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.reported = true
}

// Push hands a fix to the next CurrentFix caller and to watch subscribers.
// When nobody is sampling the oldest queued fix is dropped.
func (f *Feed) Push(fix location.Fix) {
	for {
		select {
		case f.queue <- fix:
			f.fanOut(fix)
			return
		default:
		}
		select {
		case <-f.queue:
		default:
		}
	}
}

func (f *Feed) fanOut(fix location.Fix) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subscribers {
		if !sub.accepts(fix) {
			continue
		}
		select {
		case sub.ch <- fix:
			accepted := fix
			sub.last = &accepted
		default:
			// slow consumer, the next fix supersedes this one
		}
	}
}

func (s *subscriber) accepts(fix location.Fix) bool {
	if s.last == nil {
		return true
	}
	if s.opts.Interval > 0 && fix.Timestamp.Sub(s.last.Timestamp) >= s.opts.Interval {
		return true
	}
	moved := geo.Distance(
		geo.Point{Lat: s.last.Latitude, Lon: s.last.Longitude},
		geo.Point{Lat: fix.Latitude, Lon: fix.Longitude},
	)
	return moved >= s.opts.DistanceMeters
}

func (f *Feed) RequestPermission(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.reported {
		return false, ErrNoDevice
	}
	return f.status.PermissionGranted, nil
}

func (f *Feed) ServicesEnabled(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status.ServicesEnabled, nil
}

func (f *Feed) IsPhysicalDevice() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status.PhysicalDevice
}

// DeviceInfo returns the last reported device description.
func (f *Feed) DeviceInfo(context.Context) device.Info {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status.Device
}

// CurrentFix blocks until a fix is pushed or ctx is done. Every request asks
// the phone for its best accuracy so the class is not used.
func (f *Feed) CurrentFix(ctx context.Context, _ location.Accuracy) (location.Fix, error) {
	select {
	case fix := <-f.queue:
		return fix, nil
	case <-ctx.Done():
		return location.Fix{}, ctx.Err()
	}
}

// Watch subscribes to pushed fixes until ctx is done.
func (f *Feed) Watch(ctx context.Context, opts location.WatchOptions) (<-chan location.Fix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &subscriber{ch: make(chan location.Fix, 1), opts: opts}

	f.mu.Lock()
	f.subscribers[sub] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subscribers, sub)
		close(sub.ch)
		f.mu.Unlock()
	}()
	return sub.ch, nil
}

// Subscribers reports the number of active watches.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// Stamp fills a missing fix timestamp with now.
func Stamp(fix location.Fix, now time.Time) location.Fix {
	if fix.Timestamp.IsZero() {
		fix.Timestamp = now
	}
	return fix
}
