// Package location acquires a validated GPS reading from the positioning
// port. It samples repeatedly, keeps the most precise fresh fix and runs
// the anti-spoofing heuristics on the winner.
package location

import (
	"context"
	"time"
)

// Accuracy is the precision class requested from the positioning port.
type Accuracy int

const (
	AccuracyBalanced Accuracy = iota
	AccuracyHigh
)

// Fix is a raw reading as reported by the device.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Mocked    bool      `json:"mocked"`
}

// WatchOptions filters a position subscription by time and movement.
type WatchOptions struct {
	Interval       time.Duration
	DistanceMeters float64
}

// Device is the positioning port.
type Device interface {
	RequestPermission(ctx context.Context) (bool, error)
	ServicesEnabled(ctx context.Context) (bool, error)
	// CurrentFix blocks until a fix is available or ctx is done.
	CurrentFix(ctx context.Context, accuracy Accuracy) (Fix, error)
	// Watch streams fixes until ctx is done, then closes the channel.
	Watch(ctx context.Context, opts WatchOptions) (<-chan Fix, error)
	IsPhysicalDevice() bool
}

// ValidatedLocation is a fix that went through the spoofing heuristics.
// IsValid is false iff a blocking warning is present.
type ValidatedLocation struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	AccuracyMeters float64   `json:"accuracy_meters"`
	Timestamp      time.Time `json:"timestamp"`
	Altitude       *float64  `json:"altitude,omitempty"`
	Speed          *float64  `json:"speed,omitempty"`
	Heading        *float64  `json:"heading,omitempty"`
	Mocked         bool      `json:"mocked"`
	IsValid        bool      `json:"is_valid"`
	Warnings       []string  `json:"warnings"`
}

// FromFix validates a raw fix. physicalDevice comes from the port.
func FromFix(fix Fix, physicalDevice bool) *ValidatedLocation {
	signals := Signals{Mocked: fix.Mocked, PhysicalDevice: physicalDevice}
	if fix.Speed != nil {
		signals.Speed = *fix.Speed
	}
	valid, warnings := Validate(fix.Latitude, fix.Longitude, signals)
	return &ValidatedLocation{
		Latitude:       fix.Latitude,
		Longitude:      fix.Longitude,
		AccuracyMeters: fix.Accuracy,
		Timestamp:      fix.Timestamp,
		Altitude:       fix.Altitude,
		Speed:          fix.Speed,
		Heading:        fix.Heading,
		Mocked:         fix.Mocked,
		IsValid:        valid,
		Warnings:       warnings,
	}
}

// Age returns how old the reading is at now.
func (l *ValidatedLocation) Age(now time.Time) time.Duration {
	return now.Sub(l.Timestamp)
}
