// Package main is the entry point for the Content Analyzer app server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/content-analyzer/internal/config"
	"github.com/Shimizu-Technology/content-analyzer/internal/database"
	"github.com/Shimizu-Technology/content-analyzer/internal/handlers"
	"github.com/Shimizu-Technology/content-analyzer/internal/identity"
	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
	"github.com/Shimizu-Technology/content-analyzer/internal/router"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/analysis"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/analyze"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/docstore"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Content Analyzer starting", zap.String("version", Version))
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	logger.Info("Config loaded",
		zap.String("port", cfg.Port),
		zap.Int("persist_workers", cfg.PersistWorkers),
		zap.String("gin_mode", cfg.GinMode),
		zap.String("analysis_api", cfg.AnalysisAPIURL),
	)

	gin.SetMode(cfg.GinMode)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations("migrations"); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	// Step 3: Document store and the persistence workers writing to it
	store := docstore.New(db)
	pool := worker.NewPool(cfg.PersistWorkers, cfg.PersistQueueSize, store, cfg.DocStoreDatabaseID, cfg.DocStoreCollectionID)
	pool.Start()
	defer pool.Stop()

	// Step 4: Identity provider and the analysis API client
	provider := identity.NewLocal(db, cfg.JWTSecret)

	var opts []analysis.Option
	if cfg.AnalysisAPIToken != "" {
		opts = append(opts, analysis.WithToken(cfg.AnalysisAPIToken))
	} else {
		logger.Warn("No analysis API token configured (set ANALYSIS_API_TOKEN if the analysis API requires one)")
	}
	client := analysis.NewClient(cfg.AnalysisAPIURL, cfg.AnalysisTimeout, opts...)
	analyses := analyze.New(client, pool)

	// Step 5: Setup HTTP Router
	handlers.Version = Version
	h := handlers.NewHandler(provider, analyses, store, db, pool)
	h.DatabaseID = cfg.DocStoreDatabaseID
	h.CollectionID = cfg.DocStoreCollectionID
	h.MaxUploadBytes = cfg.MaxUploadBytes
	h.SecureCookies = cfg.GinMode == "release"

	r, err := router.Setup(h, router.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		RateLimitPerHour: cfg.RateLimitPerHour,
	})
	if err != nil {
		logger.Fatal("Failed to set up router", zap.Error(err))
	}

	// Step 6: Start the HTTP Server
	// WriteTimeout leaves room for the analysis API's own timeout.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AnalysisTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Step 7: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	// Deferred pool.Stop drains queued record writes before the DB closes.
	logger.Info("Server stopped")
}
