package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	Timezone    string
	SeedDemo    bool

	HTTP     HTTPConfig
	JWT      JWTConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Geofence GeofenceConfig
}

// HTTPConfig holds server timeouts. There is no write timeout: the websocket
// watch keeps responses open for the whole session.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// DatabaseConfig is empty when Postgres is not configured; the server then
// runs on in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers         []string
	AttendanceTopic string
	ProduceTimeout  time.Duration
}

// GeofenceConfig exposes the disambiguation thresholds and the operating
// region used by the coordinate sanity check.
type GeofenceConfig struct {
	TieDistanceMeters        float64
	CoordinateEpsilonDegrees float64
	Region                   [4]float64 // min_lat, min_lon, max_lat, max_lon
	StrictRegion             bool
	SelectionTTL             time.Duration
}

// DefaultRegion bounds continental Colombia with a margin.
var DefaultRegion = [4]float64{-4.3, -82.0, 13.5, -66.8}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Server{
		Addr:        getenv("ANIMA_ADDR", ":8080"),
		Environment: getenv("ANIMA_ENV", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Timezone:    getenv("ANIMA_TIMEZONE", "America/Bogota"),
		SeedDemo:    os.Getenv("ANIMA_SEED_DEMO") == "true",
		HTTP: HTTPConfig{
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
			MaxHeaderBytes:    16 << 10,
		},
		JWT: JWTConfig{
			// Use a default for development - should be overridden in production
			SigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     getenv("JWT_ISSUER", "anima"),
			Audience:   getenv("JWT_AUDIENCE", "anima-mobile"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:         splitList(os.Getenv("KAFKA_BROKERS")),
			AttendanceTopic: getenv("KAFKA_ATTENDANCE_TOPIC", "anima.attendance.events"),
			ProduceTimeout:  5 * time.Second,
		},
		Geofence: GeofenceConfig{
			TieDistanceMeters:        5,
			CoordinateEpsilonDegrees: 1e-5,
			Region:                   DefaultRegion,
			StrictRegion:             os.Getenv("GEOFENCE_STRICT_REGION") == "true",
			SelectionTTL:             2 * time.Minute,
		},
	}

	var err error
	for key, target := range map[string]*time.Duration{
		"ANIMA_HTTP_READ_TIMEOUT":     &cfg.HTTP.ReadTimeout,
		"ANIMA_HTTP_IDLE_TIMEOUT":     &cfg.HTTP.IdleTimeout,
		"ANIMA_HTTP_SHUTDOWN_TIMEOUT": &cfg.HTTP.ShutdownTimeout,
	} {
		if *target, err = durationEnv(key, *target); err != nil {
			return Server{}, err
		}
	}
	if cfg.Geofence.TieDistanceMeters, err = floatEnv("GEOFENCE_TIE_DISTANCE_M", cfg.Geofence.TieDistanceMeters); err != nil {
		return Server{}, err
	}
	if cfg.Geofence.CoordinateEpsilonDegrees, err = floatEnv("GEOFENCE_COORD_EPSILON_DEG", cfg.Geofence.CoordinateEpsilonDegrees); err != nil {
		return Server{}, err
	}
	if raw := os.Getenv("GEOFENCE_REGION"); raw != "" {
		if cfg.Geofence.Region, err = parseRegion(raw); err != nil {
			return Server{}, err
		}
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return Server{}, fmt.Errorf("invalid ANIMA_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseRegion(raw string) ([4]float64, error) {
	var region [4]float64
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return region, fmt.Errorf("invalid GEOFENCE_REGION %q: want min_lat,min_lon,max_lat,max_lon", raw)
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return region, fmt.Errorf("invalid GEOFENCE_REGION %q: %w", raw, err)
		}
		region[i] = v
	}
	if region[0] > region[2] || region[1] > region[3] {
		return region, fmt.Errorf("invalid GEOFENCE_REGION %q: min exceeds max", raw)
	}
	return region, nil
}
