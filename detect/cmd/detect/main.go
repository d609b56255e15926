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

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/common/messaging"
	natsclient "github.com/chaintrace-systems/chaintrace-stack/common/messaging/nats"
	"github.com/chaintrace-systems/chaintrace-stack/common/severity"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/archive"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/ensemble"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/handlers"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/normalizer"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/privacy"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/rules"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/server"
	"github.com/chaintrace-systems/chaintrace-stack/detect/internal/service"
)

func main() {
	cfg, err := config.Load("detect")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)
	logger.Info("starting detect service", logging.Service("detect"))

	// Model artifact
	model, err := loadArtifact(cfg.Detect.Artifact)
	if err != nil {
		log.Fatalf("Failed to load model artifact: %v", err)
	}
	logger.Info("model artifact loaded", "version", model.Version)

	// Anomaly store
	repo, err := buildRepository(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	// Telemetry archive
	var archiver archive.Archiver = archive.NoopArchiver{}
	if cfg.Detect.Archive.Enabled {
		osClient, err := archive.NewClient(cfg.OpenSearch)
		if err != nil {
			log.Fatalf("Failed to create archive client: %v", err)
		}
		if err := osClient.Initialize(context.Background()); err != nil {
			log.Fatalf("Failed to initialize archive: %v", err)
		}
		archiver = osClient
	}

	// Privacy codec
	var verifier privacy.Verifier = privacy.NoopVerifier{}
	if cfg.Detect.Privacy.Enabled {
		verifier = privacy.New(cfg.Detect.Privacy.URL, cfg.Detect.Privacy.Timeout)
	}

	// NATS publisher for async anchoring
	var publisher messaging.Publisher
	if cfg.NATS.Enabled {
		nc, err := natsclient.NewClient(natsclient.Config{
			URL:           cfg.NATS.URL,
			Name:          "chaintrace-detect",
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Timeout:       5 * time.Second,
		})
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Close()
		publisher = nc
	}

	// Rule pre-classification
	preRules, err := rules.NewEngine(cfg.Detect.PreRules)
	if err != nil {
		log.Fatalf("Failed to compile pre-classification rules: %v", err)
	}

	svc := service.New(
		cfg.Detect.Pipeline,
		normalizer.DefaultRegistry(),
		model,
		ensemble.NewEngine(cfg.Detect.Pipeline.DetectorTimeout, cfg.Detect.Pipeline.EnsembleTimeout),
		severity.NewClassifier(severity.DefaultThresholds()),
		preRules,
		repo,
		archiver,
		verifier,
		publisher,
		logger,
	)

	handler := handlers.NewHandler(svc, cfg.Detect.Pipeline.MaxPayloadBytes)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Detect.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Detect.Server.ReadTimeout,
		WriteTimeout: cfg.Detect.Server.WriteTimeout,
		IdleTimeout:  cfg.Detect.Server.IdleTimeout,
	}

	go func() {
		logger.Info("detect service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down detect service")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("detect service stopped")
}

// loadArtifact loads the configured artifact file, falling back to the
// built-in development artifact when no file is present.
func loadArtifact(cfg config.ArtifactConfig) (*artifact.Artifact, error) {
	if cfg.Path == "" {
		return artifact.Default(), nil
	}
	if _, err := os.Stat(cfg.Path); os.IsNotExist(err) {
		log.Printf("Artifact file %s not found, using built-in development artifact", cfg.Path)
		return artifact.Default(), nil
	}
	return artifact.Load(cfg.Path, cfg.Version)
}

// buildRepository connects to postgres and runs migrations, or falls back to
// the in-memory store when no database is configured.
func buildRepository(cfg config.DatabaseConfig) (repository.Repository, error) {
	if cfg.URL == "" {
		log.Println("No database configured, using in-memory anomaly store")
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
