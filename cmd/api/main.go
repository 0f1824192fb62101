package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vaidashi/storefront-api/internal/api"
	"github.com/vaidashi/storefront-api/internal/config"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.LogLevel)
	if cfg.IsDevelopment() {
		l = logger.NewDevelopmentLogger(cfg.LogLevel)
	}
	l.Info("Starting API server...")

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	server, err := api.New(startCtx, cfg, l)
	cancelStart()

	if err != nil {
		l.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown via interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.Error("Server forced to shutdown", "error", err)
	} else {
		l.Info("Server exiting")
	}
}
