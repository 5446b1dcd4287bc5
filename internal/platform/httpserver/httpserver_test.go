package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"anima/internal/platform/config"
)

func TestNew(t *testing.T) {
	cfg := config.HTTPConfig{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       2 * time.Second,
		IdleTimeout:       3 * time.Second,
		MaxHeaderBytes:    1024,
	}
	handler := http.NotFoundHandler()

	srv := New(":9090", cfg, handler)

	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 2*time.Second, srv.ReadTimeout)
	assert.Equal(t, 3*time.Second, srv.IdleTimeout)
	assert.Equal(t, 1024, srv.MaxHeaderBytes)
	assert.Zero(t, srv.WriteTimeout, "watch connections must not hit a write deadline")
}
