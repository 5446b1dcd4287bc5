package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"anima/internal/attendance"
	attmetrics "anima/internal/attendance/metrics"
	attstore "anima/internal/attendance/store"
	"anima/internal/device"
	"anima/internal/geo"
	gfmetrics "anima/internal/geofence/metrics"
	jwttoken "anima/internal/jwt_token"
	"anima/internal/notify"
	"anima/internal/platform/config"
	"anima/internal/platform/httpserver"
	"anima/internal/platform/kafka"
	"anima/internal/platform/logger"
	"anima/internal/platform/middleware"
	"anima/internal/platform/postgres"
	"anima/internal/platform/redis"
	"anima/internal/selection"
	httptransport "anima/internal/transport/http"
	wfservice "anima/internal/workforce/service"
	wfstore "anima/internal/workforce/store"
	"anima/internal/workspace"
	id "anima/pkg/domain"
	"anima/pkg/platform/circuit"
)

const (
	sweepInterval      = time.Minute
	workspaceIdleAfter = 30 * time.Minute
	demoTokenTTL       = 24 * time.Hour
)

// main wires the stores, the per-user workspaces and the HTTP surface. With
// no DATABASE_URL, REDIS_URL or KAFKA_BROKERS the server runs fully in memory.
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// backends are the optional infrastructure clients, closed on shutdown.
type backends struct {
	db    *sql.DB
	redis *redis.Client
	kafka *kgo.Client
}

func (b *backends) healthChecks() map[string]func(context.Context) error {
	checks := make(map[string]func(context.Context) error)
	if b.db != nil {
		checks["postgres"] = b.db.PingContext
	}
	if b.redis != nil {
		checks["redis"] = b.redis.Health
	}
	if b.kafka != nil {
		checks["kafka"] = b.kafka.Ping
	}
	return checks
}

func (b *backends) close() {
	if b.kafka != nil {
		b.kafka.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	var infra backends
	defer infra.close()

	workforce, logs, err := openStores(ctx, cfg, log, &infra)
	if err != nil {
		return err
	}
	jwtService := jwttoken.NewJWTService(cfg.JWT)
	if cfg.SeedDemo {
		if err := seedDemo(ctx, workforce, jwtService, log); err != nil {
			return err
		}
	}

	selections, err := openSelections(ctx, cfg, log, &infra)
	if err != nil {
		return err
	}
	notifier, err := openNotifier(ctx, cfg, log, &infra)
	if err != nil {
		return err
	}

	sessions, err := wfservice.NewSessionProvider(workforce, log)
	if err != nil {
		return err
	}
	admin, err := wfservice.NewAdminService(workforce, log)
	if err != nil {
		return err
	}
	selectionService, err := selection.NewService(selections, sessions, cfg.Geofence.SelectionTTL, log)
	if err != nil {
		return err
	}

	registry, err := workspace.NewRegistry(workspace.Dependencies{
		Sessions:          sessions,
		Logs:              logs,
		Selections:        selections,
		Notifier:          notifier,
		Logger:            log,
		GeofenceMetrics:   gfmetrics.New(),
		AttendanceMetrics: attmetrics.New(),
		Location:          loc,
		TieRule: geo.TieRule{
			DistanceMeters: cfg.Geofence.TieDistanceMeters,
			EpsilonDegrees: cfg.Geofence.CoordinateEpsilonDegrees,
		},
		Region:       geo.RegionFromBounds(cfg.Geofence.Region),
		StrictRegion: cfg.Geofence.StrictRegion,
	})
	if err != nil {
		return err
	}

	handler := httptransport.New(registry, selectionService, admin, device.NewService(true), log)
	router := httptransport.NewRouter(handler, httptransport.RouterConfig{
		Validator:    jwtService,
		Logger:       log,
		HTTPMetrics:  middleware.NewHTTPMetrics(),
		HealthChecks: infra.healthChecks(),
	})
	srv := httpserver.New(cfg.Addr, cfg.HTTP, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting anima", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := workspace.NewSweeper(registry, sweepInterval, workspaceIdleAfter, log).Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Server, log *slog.Logger, infra *backends) (wfstore.Store, attendance.LogStore, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		workforce := wfstore.NewInMemoryStore()
		return workforce, attstore.NewInMemoryStore(workforce), nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	infra.db = db
	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, nil, err
	}
	log.Info("connected to postgres")
	return wfstore.NewPostgres(db), attstore.NewPostgres(db), nil
}

func openSelections(ctx context.Context, cfg config.Server, log *slog.Logger, infra *backends) (selection.Store, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, site selections are kept in memory")
		return selection.NewInMemoryStore(), nil
	}
	infra.redis = client
	return selection.NewRedisStore(client.Client), nil
}

func openNotifier(ctx context.Context, cfg config.Server, log *slog.Logger, infra *backends) (attendance.Notifier, error) {
	client, err := kafka.NewClient(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Warn("KAFKA_BROKERS not set, attendance events are only logged")
		return notify.NewLogNotifier(log), nil
	}
	infra.kafka = client
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.AttendanceTopic, 3, 1, log); err != nil {
		return nil, err
	}
	producer, err := notify.NewKafkaNotifier(client, cfg.Kafka.AttendanceTopic, cfg.Kafka.ProduceTimeout)
	if err != nil {
		return nil, err
	}
	return notify.NewFallbackNotifier(producer, notify.NewLogNotifier(log), circuit.New("kafka-notifier"), log)
}

// seedDemo loads the demo registry and logs tokens for its two users.
func seedDemo(ctx context.Context, workforce wfstore.Store, jwtService *jwttoken.JWTService, log *slog.Logger) error {
	seed, err := wfstore.SeedDemo(ctx, workforce)
	if err != nil {
		return err
	}
	for _, e := range []struct {
		name   string
		userID id.UserID
		role   string
	}{
		{"employee", seed.Employee.UserID, seed.Employee.Role},
		{"manager", seed.Manager.UserID, seed.Manager.Role},
	} {
		token, err := jwtService.GenerateAccessToken(e.userID, e.role, demoTokenTTL)
		if err != nil {
			return fmt.Errorf("sign demo token: %w", err)
		}
		log.Info("demo user seeded", "user", e.name, "token", token)
	}
	return nil
}
