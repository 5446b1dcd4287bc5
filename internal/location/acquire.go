package location

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// MaxSampleAge is the oldest fix accepted as current.
	MaxSampleAge = 30 * time.Second
	// SamplePause lets the receiver converge between samples.
	SamplePause = 700 * time.Millisecond
	// MinSampleTimeout is the floor of the per-sample time box.
	MinSampleTimeout = 4 * time.Second

	minSamples = 1
	maxSamples = 6
)

// Options tunes a single acquisition.
type Options struct {
	MaxAccuracyMeters float64
	Samples           int
	Timeout           time.Duration
}

// FailureRecorder counts failed acquisitions by code.
type FailureRecorder interface {
	IncrementAcquireFailure(code string)
}

// Acquirer samples the positioning port.
type Acquirer struct {
	device           Device
	logger           *slog.Logger
	recorder         FailureRecorder
	now              func() time.Time
	samplePause      time.Duration
	minSampleTimeout time.Duration
}

// Option configures an Acquirer.
type Option func(*Acquirer)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Acquirer) {
		a.logger = logger
	}
}

func WithRecorder(recorder FailureRecorder) Option {
	return func(a *Acquirer) {
		a.recorder = recorder
	}
}

// WithClock sets the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) {
		a.now = now
	}
}

func WithSamplePause(d time.Duration) Option {
	return func(a *Acquirer) {
		a.samplePause = d
	}
}

func WithMinSampleTimeout(d time.Duration) Option {
	return func(a *Acquirer) {
		a.minSampleTimeout = d
	}
}

func NewAcquirer(device Device, opts ...Option) *Acquirer {
	a := &Acquirer{
		device:           device,
		logger:           slog.Default(),
		now:              time.Now,
		samplePause:      SamplePause,
		minSampleTimeout: MinSampleTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsPhysicalDevice forwards the port's emulator detection.
func (a *Acquirer) IsPhysicalDevice() bool {
	return a.device.IsPhysicalDevice()
}

// Acquire returns the most precise fresh reading within opts. On
// CodeSpoofingDetected the invalid location is returned alongside the error.
func (a *Acquirer) Acquire(ctx context.Context, opts Options) (*ValidatedLocation, error) {
	loc, err := a.acquire(ctx, opts)
	if err != nil {
		code, _ := CodeOf(err)
		if a.recorder != nil {
			a.recorder.IncrementAcquireFailure(string(code))
		}
		a.logger.WarnContext(ctx, "location acquisition failed",
			"code", code,
			"error", err,
		)
	}
	return loc, err
}

func (a *Acquirer) acquire(ctx context.Context, opts Options) (*ValidatedLocation, error) {
	samples := min(max(opts.Samples, minSamples), maxSamples)
	perSample := max(opts.Timeout/time.Duration(samples), a.minSampleTimeout)

	granted, err := a.device.RequestPermission(ctx)
	if err != nil {
		return nil, errUnknown(err)
	}
	if !granted {
		return nil, errPermissionDenied()
	}
	enabled, err := a.device.ServicesEnabled(ctx)
	if err != nil {
		return nil, errUnknown(err)
	}
	if !enabled {
		return nil, errServicesDisabled()
	}

	var (
		best      *Fix
		deviceErr error
		timeouts  int
	)
	for i := 0; i < samples; i++ {
		if i > 0 && !sleep(ctx, a.samplePause) {
			break
		}
		fix, err := a.sample(ctx, perSample)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				timeouts++
			} else {
				deviceErr = err
			}
			continue
		}
		if a.now().Sub(fix.Timestamp) > MaxSampleAge {
			continue
		}
		if best == nil || fix.Accuracy < best.Accuracy {
			best = &fix
		}
		if best.Accuracy <= opts.MaxAccuracyMeters {
			break
		}
	}

	if best == nil {
		if deviceErr != nil && timeouts == 0 {
			return nil, errUnknown(deviceErr)
		}
		return nil, errTimeout()
	}
	if best.Accuracy > opts.MaxAccuracyMeters {
		return nil, errAccuracyTooLow(best.Accuracy, opts.MaxAccuracyMeters)
	}
	if a.now().Sub(best.Timestamp) > MaxSampleAge {
		return nil, errStale()
	}

	loc := FromFix(*best, a.device.IsPhysicalDevice())
	if !loc.IsValid {
		return loc, errSpoofing()
	}
	return loc, nil
}

type sampleResult struct {
	fix Fix
	err error
}

// sample races one high-accuracy request against timeout. A request that
// loses the race is abandoned; its result is dropped into a buffered channel.
func (a *Acquirer) sample(ctx context.Context, timeout time.Duration) (Fix, error) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make(chan sampleResult, 1)
	go func() {
		fix, err := a.device.CurrentFix(sctx, AccuracyHigh)
		results <- sampleResult{fix: fix, err: err}
	}()

	select {
	case r := <-results:
		return r.fix, r.err
	case <-sctx.Done():
		return Fix{}, sctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
