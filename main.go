package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Pawarasasmina/photobooth/api"
	"github.com/Pawarasasmina/photobooth/config"
	"github.com/Pawarasasmina/photobooth/metrics"
	"github.com/Pawarasasmina/photobooth/server"
	"github.com/Pawarasasmina/photobooth/session"
	"github.com/Pawarasasmina/photobooth/websocket"
)

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize config
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	if err := config.Initialize(env); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.Get()

	// --- Session Record Store Initialization ---
	var store session.Store
	log.Printf("Initializing session record store of type: %s", cfg.Store.Type)
	switch strings.ToLower(cfg.Store.Type) {
	case "memory":
		store = session.NewMemoryStore()
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:        cfg.Store.Redis.Address,
			Password:    cfg.Store.Redis.Password,
			DB:          cfg.Store.Redis.DB,
			PoolSize:    cfg.Store.Redis.PoolSize,
			PoolTimeout: time.Duration(cfg.Store.Redis.PoolTimeout) * time.Second,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis for session record store: %v", err)
		}
		defer redisClient.Close()
		store = session.NewRedisStore(redisClient, time.Duration(cfg.Session.IdleTimeout)*time.Second)
	default:
		// This should be caught by config validation, but we check again as a safeguard.
		log.Fatalf("Invalid store type specified: %s", cfg.Store.Type)
	}
	// --- End of Store Initialization ---

	// Create the session registry and start the expiry sweeper
	registry := session.NewRegistry(
		store,
		cfg.Server.PublicURL,
		time.Duration(cfg.Session.IdleTimeout)*time.Second,
		time.Duration(cfg.Session.SweepInterval)*time.Second,
	)
	registry.StartSweeper(ctx)

	// Capture sequencer
	sequencer := session.NewSequencer(time.Duration(cfg.Capture.RoundTimeout) * time.Second)

	// Websocket and HTTP handlers
	wsHandler := websocket.NewHandler(registry, sequencer, &cfg.WebSocket)
	apiHandlers := api.NewHandlers(registry, nil)
	router := api.NewRouter(apiHandlers, wsHandler.HandleWebSocket)

	// Metrics server
	if cfg.Metrics.Enabled {
		metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// Create and configure server
	addr := ":" + strconv.Itoa(cfg.Server.Port)
	srv := server.NewServer(
		addr,
		router,
		time.Duration(cfg.Server.ReadTimeout)*time.Second,
		time.Duration(cfg.Server.WriteTimeout)*time.Second,
	)

	// Start server
	go srv.Start()
	log.Println("Photobooth relay started on " + addr)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received")

	// Graceful shutdown
	srv.Shutdown(ctx, registry)
}
