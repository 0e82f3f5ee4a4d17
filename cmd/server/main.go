package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/recipient-engine/internal/api"
	"github.com/ignite/recipient-engine/internal/config"
	"github.com/ignite/recipient-engine/internal/pkg/logger"
	"github.com/ignite/recipient-engine/internal/upload"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("Starting recipient-engine server (cmd/server/main.go)...")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(!cfg.Logging.DisableRedaction)

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Redis holds the upload review sessions
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.Timeout(),
		ReadTimeout:  cfg.Redis.Timeout(),
		WriteTimeout: cfg.Redis.Timeout(),
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.Redis.Timeout())
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis not reachable at %s: %v", cfg.Redis.Addr, err)
	} else {
		log.Printf("Connected to Redis at %s", cfg.Redis.Addr)
	}
	pingCancel()

	uploadService := upload.NewService(redisClient, cfg.Upload, cfg.Validation)
	server := api.NewServer(cfg, uploadService)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("Server initialized and ready")

	<-done
	log.Println("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Redis close error: %v", err)
	}

	log.Println("Server stopped")
}
