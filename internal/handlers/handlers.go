package handlers

import (
	"github.com/go-redis/redis/v8"

	"github.com/shoplite/shoplite-golang/internal/database"
	"github.com/shoplite/shoplite-golang/internal/events"
	"github.com/shoplite/shoplite-golang/internal/metrics"
	"github.com/shoplite/shoplite-golang/internal/orders"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Pool    *database.Pool    // Bounded connection pool, shared by every request
	Orders  *orders.Executor  // Transactional order placement
	Metrics *metrics.Metrics  // Prometheus collectors
	Events  *events.Publisher // Kafka order events (may be disabled)
	RDB     *redis.Client     // Optional idempotency store; nil when unconfigured
}
