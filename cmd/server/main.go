package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkin-app/internal/auth"
	"checkin-app/internal/cache"
	"checkin-app/internal/config"
	"checkin-app/internal/database"
	"checkin-app/internal/handlers"
	"checkin-app/internal/history"
	"checkin-app/internal/presence"
	ws "checkin-app/internal/websocket"
	"checkin-app/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Occupancy projection cache: redis when reachable, in-memory otherwise
	occCache := newOccupancyCache(cfg)

	// Core presence state
	store := presence.NewStore()
	backlog := history.NewLog(cfg.History.Limit)

	// Broadcast hub
	hub := ws.NewHub()
	go hub.Run()

	// Services
	authService := auth.NewService(db, cfg)
	wsService := ws.NewService(store, backlog, db, occCache, hub)

	// Handlers
	wsHandlers := handlers.NewWebSocketHandlers(authService, wsService)
	occHandlers := handlers.NewOccupancyHandlers(store, occCache)

	// Setup routes
	router := mux.NewRouter()
	router.HandleFunc("/health", handlers.Health).Methods("GET")
	router.HandleFunc("/occupancy", occHandlers.GetOccupancy).Methods("GET")
	router.HandleFunc("/buildings/{code}/occupancy", occHandlers.GetBuildingOccupancy).Methods("GET")
	router.HandleFunc("/ws", wsHandlers.HandleWebSocket)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	hub.ShutdownHub()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

// newOccupancyCache tries redis and degrades to the in-memory projection.
// The cache only feeds the REST read endpoints, so losing redis never
// touches protocol correctness.
func newOccupancyCache(cfg *config.Config) cache.OccupancyCache {
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Redis unreachable at %s, using in-memory occupancy cache: %v", cfg.Redis.Addr, err)
		return cache.NewMemoryCache()
	}

	logger.Info("Connected to redis at %s", cfg.Redis.Addr)
	return cache.NewRedisCache(client)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
