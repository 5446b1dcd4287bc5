package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

const (
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Mobile Safari/537.36"
)

type DeviceServiceSuite struct {
	suite.Suite
	svc *Service
}

func (s *DeviceServiceSuite) SetupTest() {
	s.svc = NewService(true)
}

func TestDeviceServiceSuite(t *testing.T) {
	suite.Run(t, new(DeviceServiceSuite))
}

func (s *DeviceServiceSuite) TestUserAgentParsing() {
	s.Run("empty user agent returns unknown device", func() {
		s.Equal("Unknown Device", ParseUserAgent(""))
	})

	s.Run("safari on iphone includes platform", func() {
		result := ParseUserAgent(iphoneUA)
		s.Contains(result, "on")
		s.Contains(result, "iPhone")
	})

	s.Run("chrome on android includes browser and OS", func() {
		result := ParseUserAgent(androidUA)
		s.Contains(result, "Chrome")
		s.Contains(result, "Android")
	})

	s.Run("result has no leading or trailing whitespace", func() {
		result := ParseUserAgent(androidUA)
		s.Equal(result, strings.TrimSpace(result))
	})
}

func (s *DeviceServiceSuite) TestFingerprintStability() {
	s.Run("disabled service returns empty fingerprint", func() {
		s.Empty(NewService(false).ComputeFingerprint(androidUA))
	})

	s.Run("same user agent yields deterministic fingerprint", func() {
		fp1 := s.svc.ComputeFingerprint(androidUA)
		fp2 := s.svc.ComputeFingerprint(androidUA)
		s.Equal(fp1, fp2)
		s.Len(fp1, 64) // blake2b-256 hex
	})

	s.Run("minor version changes do not affect fingerprint", func() {
		patched := strings.Replace(androidUA, "120.0.6099.109", "120.0.6099.224", 1)
		s.Equal(s.svc.ComputeFingerprint(androidUA), s.svc.ComputeFingerprint(patched))
	})

	s.Run("major version changes affect fingerprint", func() {
		upgraded := strings.Replace(androidUA, "Chrome/120", "Chrome/121", 1)
		s.NotEqual(s.svc.ComputeFingerprint(androidUA), s.svc.ComputeFingerprint(upgraded))
	})
}

func (s *DeviceServiceSuite) TestDescribe() {
	s.Run("app report wins over user agent", func() {
		info := s.svc.Describe(androidUA, Report{Platform: "android", Model: "Pixel 8", AppVersion: "2.4.1", PhysicalDevice: true})
		s.Equal("android", info.Platform)
		s.Equal("Pixel 8", info.Model)
		s.True(info.PhysicalDevice)
		s.NotEmpty(info.Fingerprint)
		s.Contains(info.DisplayName, "Chrome")
	})

	s.Run("platform falls back to user agent OS", func() {
		info := s.svc.Describe(androidUA, Report{})
		s.Equal("Android", info.Platform)
	})
}

func (s *DeviceServiceSuite) TestFingerprintComparison() {
	s.Run("mismatch reports drift", func() {
		matched, drift := s.svc.CompareFingerprints("a", "b")
		s.False(matched)
		s.True(drift)
	})

	s.Run("match reports no drift", func() {
		matched, drift := s.svc.CompareFingerprints("abc", "abc")
		s.True(matched)
		s.False(drift)
	})
}
