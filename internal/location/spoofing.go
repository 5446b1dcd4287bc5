package location

import (
	"fmt"
	"strconv"
	"strings"
)

// SuspiciousSpeed is the instantaneous speed (m/s, ~198 km/h) above which a
// reading is flagged.
const SuspiciousSpeed = 55.0

const fixDecimals = 7

const (
	WarningNullPoint         = "Coordenadas en el punto nulo (0, 0)"
	WarningSuspiciousPattern = "Patrón de coordenadas sospechoso"
	WarningMockLocation      = "El dispositivo reporta ubicación simulada"
	WarningEmulator          = "La aplicación se ejecuta en un emulador"
)

// Signals carries the device-side hints considered by Validate.
type Signals struct {
	Mocked         bool
	PhysicalDevice bool
	Speed          float64
}

// Validate runs the spoofing heuristics. Only the null point and
// suspicious digit patterns are blocking; the rest are advisory warnings.
func Validate(lat, lon float64, s Signals) (bool, []string) {
	valid := true
	warnings := []string{}

	if lat == 0 && lon == 0 {
		valid = false
		warnings = append(warnings, WarningNullPoint)
	} else if suspiciousDigits(lat) || suspiciousDigits(lon) {
		valid = false
		warnings = append(warnings, WarningSuspiciousPattern)
	}

	if s.Mocked {
		warnings = append(warnings, WarningMockLocation)
	}
	if !s.PhysicalDevice {
		warnings = append(warnings, WarningEmulator)
	}
	if s.Speed > SuspiciousSpeed {
		warnings = append(warnings, fmt.Sprintf("Velocidad sospechosa: %.0f m/s", s.Speed))
	}
	return valid, warnings
}

// HasBlockingPattern reports whether lat/lon alone would invalidate a reading.
func HasBlockingPattern(lat, lon float64) bool {
	valid, _ := Validate(lat, lon, Signals{PhysicalDevice: true})
	return !valid
}

// suspiciousDigits renders v at 7 decimals, the resolution of a consumer GPS
// fix. A reading that ends in 4+ zeros there carries three decimals or fewer
// and was typed or generated; so was one whose last 6+ digits repeat.
func suspiciousDigits(v float64) bool {
	s := strconv.FormatFloat(v, 'f', fixDecimals, 64)
	_, frac, ok := strings.Cut(s, ".")
	if !ok {
		return false
	}
	trimmed := strings.TrimRight(frac, "0")
	if len(frac)-len(trimmed) >= 4 {
		return true
	}
	return trailingRun(trimmed) >= 6
}

func trailingRun(digits string) int {
	if digits == "" {
		return 0
	}
	last := digits[len(digits)-1]
	n := 0
	for i := len(digits) - 1; i >= 0 && digits[i] == last; i-- {
		n++
	}
	return n
}
