package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/shoplite/shoplite-golang/internal/database"
	"github.com/shoplite/shoplite-golang/internal/events"
	"github.com/shoplite/shoplite-golang/internal/handlers"
	"github.com/shoplite/shoplite-golang/internal/metrics"
	"github.com/shoplite/shoplite-golang/internal/orders"
	"github.com/shoplite/shoplite-golang/internal/routes"
	"github.com/shoplite/shoplite-golang/migrations"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- Database Connection Pool ---
	cfg, err := database.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid database configuration: %v", err)
	}
	pool := database.New(cfg)
	defer pool.Close()

	// The process stays up when the database is unreachable at boot:
	// the pool keeps retrying per checkout, and readiness reports 503
	// until the probe passes.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := pool.Initialize(ctx); err != nil {
		log.Printf("WARNING: Database connection pool initialization failed: %v", err)
	} else if err := migrations.Run(ctx, pool); err != nil {
		log.Printf("WARNING: Schema migration failed: %v", err)
	}
	cancel()

	// 2. --- Metrics ---
	m := metrics.New()
	m.TrackPool(pool.InUse)

	// 3. --- Order Events (optional Kafka publisher) ---
	publisher := events.NewPublisherFromEnv()
	defer publisher.Close()

	// 4. --- Idempotency Store (optional Redis) ---
	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
	}

	// --- Application Setup ---
	app := &handlers.Handlers{
		Pool:    pool,
		Orders:  orders.NewExecutor(pool),
		Metrics: m,
		Events:  publisher,
		RDB:     rdb,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting shoplite API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
