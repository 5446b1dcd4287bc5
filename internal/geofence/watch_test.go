package geofence

import (
	"sync/atomic"
	"time"

	"anima/internal/location"
	"anima/internal/positioning"
)

// stepClock is a clock the test moves by hand; the watch goroutine reads it.
type stepClock struct {
	nanos atomic.Int64
}

func newStepClock(start time.Time) *stepClock {
	c := &stepClock{}
	c.nanos.Store(start.UnixNano())
	return c
}

func (c *stepClock) Now() time.Time { return time.Unix(0, c.nanos.Load()).UTC() }

func (c *stepClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }

func (s *EngineSuite) newFeed() *positioning.Feed {
	feed := positioning.NewFeed()
	feed.UpdateStatus(positioning.Status{PermissionGranted: true, ServicesEnabled: true, PhysicalDevice: true})
	return feed
}

func (s *EngineSuite) TestWatchEvaluatesPushedFixes() {
	site := s.addSite("Sede", ptr(4.7105), ptr(-74.0725), 50)
	s.assign(site)
	clock := newStepClock(s.now)
	engine := s.newEngine(s.employee.UserID, WithClock(clock.Now))
	feed := s.newFeed()

	watch := engine.NewWatch(feed, WatchOptions{Mode: ModeCheckIn, Throttle: time.Second})
	s.Require().NoError(watch.Start(s.ctx))
	defer watch.Stop()
	s.Require().Eventually(func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	feed.Push(location.Fix{Latitude: 4.7205, Longitude: -74.0725, Accuracy: 8, Timestamp: s.now})
	s.Eventually(func() bool { return engine.Current().Status == StatusBlocked }, time.Second, 5*time.Millisecond)

	// walking into the site flips the verdict without a manual refresh
	clock.Advance(3 * time.Second)
	feed.Push(location.Fix{Latitude: 4.7105, Longitude: -74.0725, Accuracy: 8, Timestamp: s.now.Add(3 * time.Second)})
	s.Eventually(func() bool { return engine.Current().Status == StatusReady }, time.Second, 5*time.Millisecond)
	s.Equal(0, s.acquirer.callCount())
}

func (s *EngineSuite) TestWatchIsExclusivePerEngine() {
	feed := s.newFeed()
	first := s.engine.NewWatch(feed, WatchOptions{})
	second := s.engine.NewWatch(feed, WatchOptions{})

	s.Require().NoError(first.Start(s.ctx))
	s.ErrorIs(second.Start(s.ctx), ErrWatchActive)
	s.ErrorIs(first.Start(s.ctx), ErrWatchActive)

	first.Stop()
	first.Stop()
	<-first.Done()

	s.Require().NoError(second.Start(s.ctx))
	second.Stop()
	s.Eventually(func() bool { return feed.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func (s *EngineSuite) TestWatchThrottlesEvaluations() {
	site := s.addSite("Sede", ptr(4.7105), ptr(-74.0725), 50)
	s.assign(site)
	clock := newStepClock(s.now)
	engine := s.newEngine(s.employee.UserID, WithClock(clock.Now))
	feed := s.newFeed()

	var terminal atomic.Int32
	unsubscribe := engine.Subscribe(func(state *State) {
		if state.Status.IsTerminal() {
			terminal.Add(1)
		}
	})
	defer unsubscribe()

	watch := engine.NewWatch(feed, WatchOptions{Throttle: WatchThrottle})
	s.Require().NoError(watch.Start(s.ctx))
	defer watch.Stop()
	s.Require().Eventually(func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	feed.Push(location.Fix{Latitude: 4.7105, Longitude: -74.0725, Accuracy: 8, Timestamp: s.now})
	s.Require().Eventually(func() bool { return terminal.Load() == 1 }, time.Second, 5*time.Millisecond)

	// one second on the engine clock is inside the throttle window
	clock.Advance(time.Second)
	feed.Push(location.Fix{Latitude: 4.7102, Longitude: -74.0725, Accuracy: 8, Timestamp: s.now.Add(3 * time.Second)})
	time.Sleep(50 * time.Millisecond)
	s.Equal(int32(1), terminal.Load())

	clock.Advance(2 * time.Second)
	feed.Push(location.Fix{Latitude: 4.7108, Longitude: -74.0725, Accuracy: 8, Timestamp: s.now.Add(6 * time.Second)})
	s.Eventually(func() bool { return terminal.Load() == 2 }, time.Second, 5*time.Millisecond)
}
