package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/telhawk-systems/mirror-notify/common/audit"
	"github.com/telhawk-systems/mirror-notify/common/logging"
	"github.com/telhawk-systems/mirror-notify/common/messaging"
	natsclient "github.com/telhawk-systems/mirror-notify/common/messaging/nats"
	"github.com/telhawk-systems/mirror-notify/internal/config"
	"github.com/telhawk-systems/mirror-notify/internal/credentials"
	"github.com/telhawk-systems/mirror-notify/internal/demos"
	"github.com/telhawk-systems/mirror-notify/internal/events"
	"github.com/telhawk-systems/mirror-notify/internal/handlers"
	"github.com/telhawk-systems/mirror-notify/internal/ratelimit"
	"github.com/telhawk-systems/mirror-notify/internal/repository"
	"github.com/telhawk-systems/mirror-notify/internal/server"
	"github.com/telhawk-systems/mirror-notify/internal/service"
	"github.com/telhawk-systems/mirror-notify/internal/usage"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("mirror-notify"))
	logging.SetDefault(logger)

	slog.Info("Starting notify service",
		slog.Int("port", cfg.Server.Port),
		slog.String("database", cfg.Database.Type),
		slog.String("mirror_base_url", cfg.Mirror.BaseURL),
		slog.String("log_level", cfg.Logging.Level),
	)

	checks := make(map[string]handlers.ReadinessCheck)

	// Repository
	var repo repository.Repository
	switch cfg.Database.Type {
	case "postgres":
		connString := cfg.Database.Postgres.ConnString()

		slog.Info("Running database migrations", slog.String("source", cfg.Database.MigrationsPath))
		m, err := migrate.New(cfg.Database.MigrationsPath, connString)
		if err != nil {
			log.Fatalf("Failed to initialize migrations: %v", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		_, _ = m.Close()

		pgRepo, err := repository.NewPostgresRepository(context.Background(), connString)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		checks["database"] = pgRepo.Ping
		repo = pgRepo
	default:
		slog.Warn("Using in-memory repository; users and credentials are lost on restart")
		repo = repository.NewInMemoryRepository()
	}
	defer repo.Close()

	// Demo modules
	modules, err := demos.DefaultRegistry().Build(cfg.Demos.Enabled)
	if err != nil {
		log.Fatalf("Failed to configure demos: %v", err)
	}
	slog.Info("Demo modules configured", slog.Any("demos", cfg.Demos.Enabled))

	// Side events
	var publisher service.EventPublisher = events.NoOp{}
	if cfg.NATS.Enabled {
		natsCfg := natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          "mirror-notify",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       cfg.NATS.Timeout,
			Token:         cfg.NATS.Token,
		}

		var client *natsclient.Client
		if cfg.NATS.Stream.Enabled {
			js, err := natsclient.NewJetStreamClient(natsCfg, logger.Logger)
			if err != nil {
				log.Fatalf("Failed to connect to NATS: %v", err)
			}
			streamCfg := natsclient.EventsStream(cfg.NATS.Stream.MaxAge)
			if _, err := js.CreateOrUpdateStream(context.Background(), streamCfg); err != nil {
				log.Fatalf("Failed to configure event stream: %v", err)
			}
			slog.Info("Event stream ready", slog.String("stream", streamCfg.Name), slog.Duration("max_age", streamCfg.MaxAge))
			client = js.Client
		} else {
			client, err = natsclient.NewClient(natsCfg, logger.Logger)
			if err != nil {
				log.Fatalf("Failed to connect to NATS: %v", err)
			}
		}
		defer client.Close()

		checks["nats"] = messaging.ReadinessCheck(client)
		var opts []events.Option
		if cfg.NATS.SigningKey != "" {
			opts = append(opts, events.WithSigner(audit.NewEventSigner(cfg.NATS.SigningKey)))
		}
		publisher = events.NewPublisher(client, opts...)
		slog.Info("Publishing side events to NATS", slog.String("url", cfg.NATS.URL))
	}

	// Rate limiting
	var limiter ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		l, err := ratelimit.NewRedisRateLimiter(cfg.Redis.URL, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter; continuing without rate limiting", logging.Error(err))
		} else {
			limiter = l
			defer limiter.Close()
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.RateLimit.Requests),
				slog.Duration("window", cfg.RateLimit.Window))
		}
	}

	resolver := credentials.NewResolver(repo, cfg.Mirror.BaseURL, cfg.Mirror.Timeout)
	dispatcher := service.NewDispatcher(modules, logger)
	svc := service.NewNotificationService(repo, resolver, dispatcher, publisher, logger)

	// Usage statistics
	var processor handlers.NotificationProcessor = svc
	if cfg.Usage.Enabled {
		instanceID := cfg.Usage.InstanceID
		if instanceID == "" {
			instanceID, _ = os.Hostname()
		}
		usageClient, err := usage.NewClient(cfg.Redis.URL, instanceID)
		if err != nil {
			slog.Warn("Failed to initialize usage stats; continuing without them", logging.Error(err))
		} else {
			defer usageClient.Close()
			collector := usage.NewCollector(usageClient, cfg.Usage.FlushInterval, logger.Logger)
			defer collector.Stop()
			processor = usage.Track(svc, collector)
			slog.Info("Usage stats enabled",
				slog.String("instance_id", instanceID),
				slog.Duration("flush_interval", cfg.Usage.FlushInterval))
		}
	}

	router := server.NewRouter(server.RouterConfig{
		Notify:            handlers.NewNotifyHandler(processor, cfg.Ingestion.MaxBodyBytes, logger),
		Health:            handlers.NewHealthHandler(checks, logger),
		Logger:            logger,
		Limiter:           limiter,
		RateLimitWindow:   cfg.RateLimit.Window,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Notify service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", logging.Error(err))
	}

	slog.Info("Server stopped")
}
