package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"ANIMA_ADDR", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS",
		"GEOFENCE_TIE_DISTANCE_M", "GEOFENCE_COORD_EPSILON_DEG", "GEOFENCE_REGION", "ANIMA_TIMEZONE",
		"ANIMA_HTTP_READ_TIMEOUT", "ANIMA_HTTP_IDLE_TIMEOUT", "ANIMA_HTTP_SHUTDOWN_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "America/Bogota", cfg.Timezone)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.InDelta(t, 5.0, cfg.Geofence.TieDistanceMeters, 1e-9)
	assert.InDelta(t, 1e-5, cfg.Geofence.CoordinateEpsilonDegrees, 1e-12)
	assert.Equal(t, DefaultRegion, cfg.Geofence.Region)
	assert.False(t, cfg.Geofence.StrictRegion)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("GEOFENCE_TIE_DISTANCE_M", "7.5")
	t.Setenv("GEOFENCE_REGION", "1,2,3,4")
	t.Setenv("GEOFENCE_STRICT_REGION", "true")
	t.Setenv("ANIMA_HTTP_SHUTDOWN_TIMEOUT", "30s")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.InDelta(t, 7.5, cfg.Geofence.TieDistanceMeters, 1e-9)
	assert.Equal(t, [4]float64{1, 2, 3, 4}, cfg.Geofence.Region)
	assert.True(t, cfg.Geofence.StrictRegion)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestFromEnv_RejectsInvalidValues(t *testing.T) {
	t.Run("non numeric tie distance", func(t *testing.T) {
		t.Setenv("GEOFENCE_TIE_DISTANCE_M", "five")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("non positive http timeout", func(t *testing.T) {
		t.Setenv("ANIMA_HTTP_READ_TIMEOUT", "-1s")
		_, err := FromEnv()
		require.ErrorContains(t, err, "ANIMA_HTTP_READ_TIMEOUT")
	})

	t.Run("inverted region", func(t *testing.T) {
		t.Setenv("GEOFENCE_REGION", "10,0,-10,5")
		_, err := FromEnv()
		require.ErrorContains(t, err, "min exceeds max")
	})

	t.Run("unknown timezone", func(t *testing.T) {
		t.Setenv("ANIMA_TIMEZONE", "Mars/Olympus")
		_, err := FromEnv()
		require.ErrorContains(t, err, "ANIMA_TIMEZONE")
	})
}
