// Package main is the entry point for the analysis API: it extracts text from
// uploaded images and PDFs and scores it.
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

	"github.com/Shimizu-Technology/content-analyzer/internal/cache"
	"github.com/Shimizu-Technology/content-analyzer/internal/config"
	"github.com/Shimizu-Technology/content-analyzer/internal/handlers"
	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
	"github.com/Shimizu-Technology/content-analyzer/internal/router"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/ocr"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/pdf"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Analysis API starting", zap.String("version", Version))
	if err := cfg.ValidateAnalyzer(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	gin.SetMode(cfg.GinMode)

	// Result cache is optional; without Redis every upload is analyzed fresh.
	var rc handlers.ResultCache
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c, err := cache.New(ctx, cfg.RedisURL, cfg.CacheTTL)
		cancel()
		if err != nil {
			logger.Warn("Result cache disabled", zap.Error(err))
		} else {
			defer c.Close()
			rc = c
			logger.Info("Result cache enabled", zap.Duration("ttl", cfg.CacheTTL))
		}
	}

	if cfg.TesseractPath == "" {
		logger.Warn("tesseract not found (set TESSERACT_PATH); image uploads will fail")
	}
	recognizer := ocr.New(cfg.TesseractPath, int64(cfg.OCRConcurrency))

	h := handlers.NewAnalyzerHandler(recognizer, rc, cfg.MaxUploadBytes)
	if cfg.PdftoppmPath != "" {
		h.Pages = pdf.NewRenderer(cfg.PdftoppmPath)
	} else {
		logger.Warn("pdftoppm not found (set PDFTOPPM_PATH); PDF pages without a text layer will be skipped")
	}
	r := router.SetupAnalyzer(h, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AnalyzerPort),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Analysis API listening", zap.String("addr", "http://localhost:"+cfg.AnalyzerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}
}
