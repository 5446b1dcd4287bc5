package location

import (
	"errors"
	"fmt"
)

// Code classifies acquisition failures.
type Code string

const (
	CodePermissionDenied    Code = "PERMISSION_DENIED"
	CodeLocationUnavailable Code = "LOCATION_UNAVAILABLE"
	CodeTimeout             Code = "TIMEOUT"
	CodeAccuracyTooLow      Code = "ACCURACY_TOO_LOW"
	CodeSpoofingDetected    Code = "SPOOFING_DETECTED"
	CodeUnknown             Code = "UNKNOWN"
)

// Error is a typed acquisition failure carrying a user-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the location error code from err.
func CodeOf(err error) (Code, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Code, true
	}
	return "", false
}

// MessageOf returns the user-facing message of a location error, or fallback.
func MessageOf(err error, fallback string) string {
	var le *Error
	if errors.As(err, &le) && le.Message != "" {
		return le.Message
	}
	return fallback
}

func errPermissionDenied() *Error {
	return &Error{Code: CodePermissionDenied, Message: "Permiso de ubicación denegado. Habilítalo en la configuración del dispositivo para registrar asistencia."}
}

func errServicesDisabled() *Error {
	return &Error{Code: CodeLocationUnavailable, Message: "Los servicios de ubicación están desactivados. Actívalos e inténtalo de nuevo."}
}

func errStale() *Error {
	return &Error{Code: CodeLocationUnavailable, Message: "La ubicación obtenida es demasiado antigua. Inténtalo de nuevo."}
}

func errTimeout() *Error {
	return &Error{Code: CodeTimeout, Message: "No se pudo obtener tu ubicación a tiempo. Verifica que tengas buena señal GPS e inténtalo de nuevo."}
}

func errAccuracyTooLow(got, want float64) *Error {
	return &Error{
		Code:    CodeAccuracyTooLow,
		Message: fmt.Sprintf("Precisión GPS insuficiente (±%.0f m, se requiere ±%.0f m). Acércate a una ventana o sal a un espacio abierto.", got, want),
	}
}

func errSpoofing() *Error {
	return &Error{Code: CodeSpoofingDetected, Message: "Se detectó una ubicación simulada. Desactiva las aplicaciones de ubicación falsa e inténtalo de nuevo."}
}

func errUnknown(cause error) *Error {
	return &Error{Code: CodeUnknown, Message: "Error desconocido al obtener la ubicación.", Err: cause}
}
