package httpserver

import (
	"net/http"

	"anima/internal/platform/config"
)

// New builds the API server. WriteTimeout stays unset so the geofence watch
// websocket can outlive a single request deadline; the watch enforces its
// own ping/pong deadlines instead.
func New(addr string, cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
