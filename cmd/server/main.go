// Package main is the entry point for the RAG core server.
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

	"github.com/gin-gonic/gin"

	"github.com/coursewise/ragcore/internal/config"
	"github.com/coursewise/ragcore/internal/router"
	"github.com/coursewise/ragcore/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.SetOutput(os.Stdout)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	svc, err := services.New(cfg)
	if err != nil {
		log.Fatalf("failed to build services: %v", err)
	}

	r := router.NewRouter(svc)

	if err := run(cfg, r, svc.Cleaner); err != nil {
		log.Fatalf("failed to run application: %v", err)
	}
}

func run(cfg *config.Config, r *gin.Engine, cleaner *services.ResourceCleaner) error {
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cleanupCancel()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: r,
	}

	ctx, done := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-signals
		log.Printf("received signal: %v, starting server shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("server forced to shutdown: %v", err)
		}

		log.Println("cleaning up resources...")
		errs := cleaner.Cleanup(cleanupCtx)
		if len(errs) > 0 {
			log.Printf("errors occurred during resource cleanup: %v", errs)
		}

		log.Println("server has exited")
		done()
	}()

	log.Printf("server is running at %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	<-ctx.Done()
	return nil
}
