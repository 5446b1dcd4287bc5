package geofence

import "fmt"

const (
	msgChecking          = "Verificando tu ubicación..."
	msgUnauthenticated   = "Debes iniciar sesión para registrar asistencia."
	msgSessionFailed     = "No se pudo cargar tu perfil de empleado. Inténtalo de nuevo."
	msgSitesLoading      = "Cargando tus sedes asignadas..."
	msgNoSitesAssigned   = "No tienes sedes asignadas. Contacta a tu supervisor."
	msgNoSiteResolved    = "No hay una sede asignada para registrar asistencia."
	msgLastLogFailed     = "No se pudo consultar tu último registro de asistencia."
	msgSiteGone          = "La sede seleccionada ya no existe. Contacta a tu supervisor."
	msgSiteLookupFailed  = "No se pudo consultar la sede. Revisa tu conexión e inténtalo de nuevo."
	msgCandidatesFailed  = "No se pudo consultar la ubicación de tus sedes. Inténtalo de nuevo."
	msgSelectionRequired = "Hay varias sedes en esta ubicación. Selecciona en cuál vas a registrar asistencia."
	msgSpoofing          = "Se detectó una ubicación simulada. Desactiva las ubicaciones falsas o aplicaciones de GPS simulado e inténtalo de nuevo."
	msgLocationFailed    = "No se pudo obtener tu ubicación."
	msgUnexpected        = "Ocurrió un error inesperado al verificar tu ubicación."
)

func msgNoGeolocation(site string) string {
	return fmt.Sprintf("%s no requiere geolocalización. Puedes registrar asistencia.", site)
}

func msgMissingCoordinates(site string) string {
	return fmt.Sprintf("La sede %s requiere geolocalización pero no tiene coordenadas configuradas. Contacta a tu supervisor.", site)
}

func msgOutOfRegion(site string) string {
	return fmt.Sprintf("Las coordenadas de la sede %s están fuera de la región esperada. Contacta a tu supervisor.", site)
}

func msgAccuracyTooLow(accuracy, maxAccuracy float64) string {
	return fmt.Sprintf("Precisión GPS insuficiente (±%.0f m, se requiere ±%.0f m). Acércate a una ventana o sal a un espacio abierto.", accuracy, maxAccuracy)
}

func msgOutOfRange(site string, distance, accuracy, radius float64) string {
	return fmt.Sprintf("Estás a %.0f m de %s (precisión ±%.0f m, radio permitido %.0f m). Acércate a la sede e inténtalo de nuevo.", distance, site, accuracy, radius)
}

func msgNoCandidateInRange(nearest string, distance float64) string {
	return fmt.Sprintf("No estás dentro del rango de ninguna de tus sedes. La más cercana es %s, a %.0f m.", nearest, distance)
}

func msgReady(site string, distance float64) string {
	return fmt.Sprintf("Ubicación verificada en %s (a %.0f m).", site, distance)
}
