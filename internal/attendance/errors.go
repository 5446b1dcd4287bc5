package attendance

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/sentinel"
)

const (
	msgActionInProgress     = "Ya hay una acción en curso"
	msgNoOpenCheckIn        = "No hay check-in activo"
	msgAlreadyCheckedIn     = "Ya tienes un check-in activo. Registra tu salida antes de volver a ingresar."
	msgNotAuthenticated     = "Debes iniciar sesión para registrar asistencia."
	msgInactiveEmployee     = "Tu cuenta de empleado está inactiva. Contacta a tu supervisor."
	msgVerificationTimedOut = "La verificación de ubicación está tardando demasiado. Inténtalo de nuevo en unos segundos."
	msgSiteNotAssigned      = "No estás asignado a esta sede. Contacta a tu supervisor."
	msgOutOfSequence        = "Tu registro de asistencia cambió desde otro dispositivo. Actualiza e inténtalo de nuevo."
	msgRejectedLocation     = "El servidor no aceptó tu ubicación para esta sede. Acércate e inténtalo de nuevo."
	msgOffline              = "Sin conexión. Verifica tu red e inténtalo de nuevo."
	msgGeneric              = "No se pudo registrar la asistencia. Inténtalo de nuevo."
)

// StatusCoder is implemented by transport errors that carry an HTTP status.
// A zero status means the request never reached the server.
type StatusCoder interface {
	StatusCode() int
}

// classifyError turns a failure from the action call graph into the message
// shown to the employee and whether it looks like lost connectivity.
func classifyError(err error) (message string, offline bool) {
	switch {
	case strings.Contains(err.Error(), "not assigned"):
		return msgSiteNotAssigned, false
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		return msgRejectedLocation, false
	case dErrors.HasCode(err, dErrors.CodeConflict), errors.Is(err, sentinel.ErrConflict):
		return msgOutOfSequence, false
	case isNetworkError(err):
		return msgOffline, true
	default:
		return msgGeneric, false
	}
}

func isNetworkError(err error) bool {
	if errors.Is(err, sentinel.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var coder StatusCoder
	if errors.As(err, &coder) && coder.StatusCode() == 0 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"timeout", "fetch failed", "enotfound", "network", "connection refused"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
