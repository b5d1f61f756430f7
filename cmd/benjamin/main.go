package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/benjamin/pkg/api"
	"github.com/platinummonkey/benjamin/pkg/authz"
	"github.com/platinummonkey/benjamin/pkg/bus"
	"github.com/platinummonkey/benjamin/pkg/config"
	"github.com/platinummonkey/benjamin/pkg/invitations"
	"github.com/platinummonkey/benjamin/pkg/middleware"
	"github.com/platinummonkey/benjamin/pkg/observability"
	"github.com/platinummonkey/benjamin/pkg/projects"
	"github.com/platinummonkey/benjamin/pkg/storage/postgres"
	"github.com/platinummonkey/benjamin/pkg/tasks"
	"github.com/platinummonkey/benjamin/pkg/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "benjamin: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting benjamin")

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	db, err := postgres.Open(postgres.Config{
		URL:      cfg.Storage.PostgresURL,
		MaxConns: cfg.Storage.PostgresMaxConns,
		MinConns: cfg.Storage.PostgresMinConns,
		Timeout:  cfg.Storage.PostgresTimeout,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = postgres.RunMigrations(migrateCtx, db)
	cancel()
	if err != nil {
		return err
	}
	logger.Info("migrations applied")

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = postgres.OpenRedis(cfg.Storage.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	projectStore := projects.NewStore(db)
	taskStore := tasks.NewStore(db)
	invitationStore := invitations.NewStore(db)

	// The role cache sits between the checker and the membership table when
	// Redis is configured
	var membershipSource authz.MembershipSource = projectStore
	var roleCache *authz.RoleCache
	if redisClient != nil {
		roleCache = authz.NewRoleCache(projectStore, redisClient, cfg.Storage.RoleCacheTTL)
		membershipSource = roleCache
		logger.Info("role cache enabled")
	}

	checker := authz.NewChecker(membershipSource)
	guard := authz.NewGuard(checker, logger, metrics)

	directory := users.NewHTTPDirectory(cfg.Directory.BaseURL, cfg.Directory.Timeout, logger)

	var invalidator projects.RoleInvalidator
	if roleCache != nil {
		invalidator = roleCache
	}

	projectService := projects.NewService(projectStore, guard, directory, logger, invalidator)
	taskService := tasks.NewService(taskStore, guard, directory, logger)
	invitationService := invitations.NewService(
		invitationStore, guard, directory, projectStore, invalidator, logger, metrics,
		invitations.Config{
			TTL:           cfg.Invitations.TTL,
			PublicBaseURL: cfg.Server.PublicBaseURL,
		})

	publisher := bus.NewKafkaPublisher(cfg.Bus.Brokers, logger)
	defer publisher.Close()

	dispatcher := invitations.NewDispatcher(invitationStore, publisher, cfg.Bus.Topic, logger, metrics)

	scheduler := cron.New()
	_, err = scheduler.AddFunc(
		fmt.Sprintf("@every %s", cfg.Invitations.OutboxInterval),
		func() { dispatcher.Tick(context.Background()) },
	)
	if err != nil {
		return fmt.Errorf("failed to schedule outbox dispatcher: %w", err)
	}

	if metrics != nil {
		_, err = scheduler.AddFunc("@every 15s", func() {
			stats := db.Stats()
			metrics.DBConnectionsActive.Set(float64(stats.InUse))
			metrics.DBConnectionsIdle.Set(float64(stats.Idle))
		})
		if err != nil {
			return fmt.Errorf("failed to schedule db stats collection: %w", err)
		}
	}

	auth := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, logger)
	server := api.NewServer(cfg.Server, auth, logger, metrics,
		projectService, taskService, invitationService)

	healthServer := newHealthServer(cfg, registry, db, redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(server.Start)
	group.Go(func() error {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		<-scheduler.Stop().Done()
		healthServer.Shutdown(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}

// newHealthServer serves probes and metrics on a separate port so they stay
// reachable without authentication.
func newHealthServer(cfg *config.Config, registry *prometheus.Registry, db *sql.DB, redisClient *redis.Client) *http.Server {
	checker := observability.NewHealthChecker(db, redisClient)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", checker.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", checker.Readiness).Methods(http.MethodGet)
	if cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", observability.MetricsHandler(registry)).Methods(http.MethodGet)
	}

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.HealthPort),
		Handler: router,
	}
}
