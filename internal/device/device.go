// Package device builds the device-info payload attached to attendance logs.
package device

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"
)

// Report is what the mobile app says about itself.
type Report struct {
	Platform       string `json:"platform"`
	OSVersion      string `json:"os_version"`
	Model          string `json:"model"`
	AppVersion     string `json:"app_version"`
	PhysicalDevice bool   `json:"physical_device"`
}

// Info is the audit payload for the device that produced a reading.
type Info struct {
	Platform       string `json:"platform,omitempty"`
	OSVersion      string `json:"os_version,omitempty"`
	Model          string `json:"model,omitempty"`
	AppVersion     string `json:"app_version,omitempty"`
	PhysicalDevice bool   `json:"physical_device"`
	DisplayName    string `json:"display_name,omitempty"`
	Fingerprint    string `json:"fingerprint,omitempty"`
}

type Service struct {
	fingerprintEnabled bool
}

func NewService(fingerprintEnabled bool) *Service {
	return &Service{fingerprintEnabled: fingerprintEnabled}
}

// Describe merges the app report with what the User-Agent reveals.
func (s *Service) Describe(userAgent string, report Report) Info {
	info := Info{
		Platform:       report.Platform,
		OSVersion:      report.OSVersion,
		Model:          report.Model,
		AppVersion:     report.AppVersion,
		PhysicalDevice: report.PhysicalDevice,
		DisplayName:    ParseUserAgent(userAgent),
		Fingerprint:    s.ComputeFingerprint(userAgent),
	}
	if info.Platform == "" && userAgent != "" {
		info.Platform = useragent.New(userAgent).OSInfo().Name
	}
	return info
}

// ParseUserAgent returns a short "Browser on OS" label.
func ParseUserAgent(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(fmt.Sprintf("%s on %s", browser, os))
}

// ComputeFingerprint hashes the stable parts of a User-Agent (browser, major
// version, OS, platform) so patch releases do not look like a new device.
func (s *Service) ComputeFingerprint(userAgent string) string {
	if !s.fingerprintEnabled || userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	major, _, _ := strings.Cut(version, ".")
	sum := blake2b.Sum256([]byte(strings.Join([]string{browser, major, ua.OSInfo().Name, ua.Platform()}, "|")))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether two fingerprints match and whether a
// known fingerprint drifted.
func (s *Service) CompareFingerprints(stored, current string) (matched bool, drift bool) {
	if stored == "" || current == "" {
		return false, false
	}
	matched = stored == current
	return matched, !matched
}
