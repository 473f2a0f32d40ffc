package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/shiva/routeopt/config"
	"github.com/shiva/routeopt/internal/geocache"
	"github.com/shiva/routeopt/internal/geocode"
	"github.com/shiva/routeopt/internal/handler"
	"github.com/shiva/routeopt/internal/iafsa"
	"github.com/shiva/routeopt/internal/mapsclient"
	"github.com/shiva/routeopt/internal/matrix"
	"github.com/shiva/routeopt/internal/middleware"
	"github.com/shiva/routeopt/internal/orchestrator"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// ── Connect to Redis ────────────────────────────────
	redisClient, err := geocache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ── Initialize layers ───────────────────────────────
	mapsClient := mapsclient.New(cfg.Maps.APIKey, cfg.Maps.BaseURL, cfg.Maps.Timeout)
	geocodeCache := geocache.NewGeocodeCache(redisClient)
	geocoder := geocode.New(mapsClient, geocodeCache)

	orch := orchestrator.New(mapsClient, geocoder, orchestrator.Config{
		IAFSA: iafsa.Config{
			BaseFishPopulation: cfg.Optimizer.BaseFishPopulation,
			BaseIterations:     cfg.Optimizer.BaseIterations,
			MaxRetries:         cfg.Optimizer.MaxRetries,
		},
		Deadline: cfg.Optimizer.Deadline,
		Limits: matrix.Limits{
			MaxOriginsPerRequest:  cfg.Optimizer.MaxOriginsPerRequest,
			MaxElementsPerRequest: cfg.Optimizer.MaxElementsPerRequest,
		},
	})

	optimizeHandler := handler.NewOptimizeHandler(orch)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()

	// Health check endpoint.
	router.HandleFunc("/health", healthHandler(redisClient)).Methods(http.MethodGet)

	// API v1 routes.
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/optimize/last-mile", optimizeHandler.Optimize).Methods(http.MethodPost)

	// Wrap with CORS so a browser-based map UI can call the API, then with
	// the logging/recovery middleware chain.
	var httpHandler http.Handler = router
	httpHandler = middleware.CORS(httpHandler)
	httpHandler = middleware.RequestLogger(httpHandler)
	httpHandler = middleware.Recoverer(httpHandler)

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in a goroutine so we can listen for shutdown signals.
	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Server.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthHandler returns an HTTP handler that checks Redis connectivity.
func healthHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string),
		}

		if err := geocache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
