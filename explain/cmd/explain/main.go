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

	"github.com/chaintrace-systems/chaintrace-stack/common/artifact"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
	"github.com/chaintrace-systems/chaintrace-stack/common/logging"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/attribution"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/cache"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/handlers"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/repository"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/server"
	"github.com/chaintrace-systems/chaintrace-stack/explain/internal/service"
)

func main() {
	cfg, err := config.Load("explain")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)
	logger.Info("starting explain service", logging.Service("explain"))

	model, err := loadArtifact(cfg.Explain.Artifact)
	if err != nil {
		log.Fatalf("Failed to load model artifact: %v", err)
	}
	logger.Info("model artifact loaded", "version", model.Version)

	// Explanations read the anomaly store the detection service writes.
	if cfg.Database.URL == "" {
		log.Fatal("explain requires database.url: explanations read the shared anomaly store")
	}
	repo, err := repository.NewPostgresReader(context.Background(), cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to anomaly store: %v", err)
	}
	defer repo.Close()

	var expCache cache.Cache = cache.NoopCache{}
	if cfg.Explain.Cache.Enabled && cfg.Redis.Enabled {
		c, err := cache.New(cfg.Redis, cfg.Explain.Cache.TTL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		expCache = c
	}
	defer expCache.Close()

	svc := service.New(cfg.Explain, repo, attribution.NewEngine(model), expCache, logger)
	router := server.NewRouter(handlers.NewHandler(svc))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Explain.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Explain.Server.ReadTimeout,
		WriteTimeout: cfg.Explain.Server.WriteTimeout,
		IdleTimeout:  cfg.Explain.Server.IdleTimeout,
	}

	go func() {
		logger.Info("explain service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down explain service")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("explain service stopped")
}

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
