package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/consumer"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/handlers"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/ledgerclient"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/scheduler"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/server"
	"github.com/chaintrace-systems/chaintrace-stack/anchor/internal/service"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/digest"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
	natsclient "github.com/chaintrace-systems/chaintrace-stack/common/messaging/nats"
)

func main() {
	cfg, err := config.Load("anchor")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)
	logger.Info("starting anchor service", logging.Service("anchor"))

	repo, err := buildRepository(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	ledger := ledgerclient.New(cfg.Anchor.Ledger)
	signer := digest.NewSigner(cfg.Detect.Integrity.Secret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Messaging: consume anomaly-created events, publish anchor results.
	var publisher messaging.Publisher
	var broker messaging.Client
	var stopConsumer func()
	var js *natsclient.JetStreamClient
	if cfg.NATS.Enabled {
		js, err = natsclient.NewJetStreamClient(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          "chaintrace-anchor",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       5 * time.Second,
		})
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer js.Close()
		publisher = js
		broker = js
	}

	svc := service.New(cfg.Anchor, ledger, repo, signer, publisher, logger)

	if js != nil {
		if _, err := js.CreateOrUpdateStream(ctx, natsclient.AnchorJobsStream); err != nil {
			log.Fatalf("Failed to create anchor jobs stream: %v", err)
		}
		if _, err := js.CreateOrUpdateStream(ctx, natsclient.AnchorEventsStream); err != nil {
			log.Fatalf("Failed to create anchor events stream: %v", err)
		}
		if _, err := js.CreateOrUpdateConsumer(ctx, natsclient.AnchorJobsStream.Name,
			natsclient.DefaultConsumerConfig(messaging.QueueAnchorWorkers, messaging.SubjectDetectAnomaliesCreated)); err != nil {
			log.Fatalf("Failed to create anchor consumer: %v", err)
		}

		stopConsumer, err = js.ConsumeMessages(ctx, natsclient.AnchorJobsStream.Name,
			messaging.QueueAnchorWorkers, consumer.Handler(svc, logger))
		if err != nil {
			log.Fatalf("Failed to start consuming anchor jobs: %v", err)
		}
		logger.Info("consuming anomaly events",
			"stream", natsclient.AnchorJobsStream.Name,
			"consumer", messaging.QueueAnchorWorkers)
	} else {
		logger.Warn("NATS disabled, anchor service serves lookups and retries only")
	}

	// Retry pending anchors in the background.
	sched := scheduler.New(cfg.Anchor.Retry, svc, logger)
	go sched.Run(ctx)

	handler := handlers.NewHandler(svc, broker)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Anchor.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Anchor.Server.ReadTimeout,
		WriteTimeout: cfg.Anchor.Server.WriteTimeout,
		IdleTimeout:  cfg.Anchor.Server.IdleTimeout,
	}

	go func() {
		logger.Info("anchor service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down anchor service")
	if stopConsumer != nil {
		stopConsumer()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("anchor service stopped")
}

func buildRepository(cfg config.DatabaseConfig) (repository.Repository, error) {
	if cfg.URL == "" {
		log.Println("No database configured, using in-memory anchor store")
		return repository.NewMemoryRepository(), nil
	}

	log.Println("Running database migrations...")
	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("initialize migrations: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Println("Database migrations completed")

	return repository.NewPostgresRepository(context.Background(), cfg.URL)
}
