package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "database").Logger()

// Defaults for the connection pool. The retry budget absorbs transient
// startup races (e.g. the MySQL container not accepting connections yet)
// so callers never need their own retry loop.
const (
	DefaultPoolSize       = 5
	DefaultMaxRetries     = 5
	DefaultRetryDelay     = 2 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// ErrUnavailable is returned once every retry has been exhausted. It is a
// normal, handleable failure mode — route handlers translate it into a
// 500-class response, never a crash.
var ErrUnavailable = errors.New("database unavailable")

// Config holds the pool settings. Zero fields fall back to the defaults.
type Config struct {
	DSN            string
	Size           int
	MaxRetries     int
	RetryDelay     time.Duration
	ConnectTimeout time.Duration
}

// ConfigFromEnv builds a pool Config from the environment. DB_HOST, DB_USER,
// DB_PASSWORD and DB_NAME are required; DB_PORT defaults to 3306 and
// DB_POOL_SIZE overrides the pool bound.
func ConfigFromEnv() (Config, error) {
	required := []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME"}
	for _, name := range required {
		if os.Getenv(name) == "" {
			return Config{}, fmt.Errorf("environment variable %s is not set", name)
		}
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "3306"
	}

	mc := mysql.NewConfig()
	mc.User = os.Getenv("DB_USER")
	mc.Passwd = os.Getenv("DB_PASSWORD")
	mc.Net = "tcp"
	mc.Addr = os.Getenv("DB_HOST") + ":" + port
	mc.DBName = os.Getenv("DB_NAME")
	mc.Timeout = DefaultConnectTimeout
	mc.ParseTime = true

	cfg := Config{DSN: mc.FormatDSN()}
	if raw := os.Getenv("DB_POOL_SIZE"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return Config{}, fmt.Errorf("invalid DB_POOL_SIZE %q", raw)
		}
		cfg.Size = size
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Size == 0 {
		c.Size = DefaultPoolSize
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
}

// Pool owns a bounded set of database connections shared by every in-flight
// request. It is constructed once in main and injected into everything that
// needs a connection; there is no package-level pool.
type Pool struct {
	cfg Config

	mu sync.Mutex
	db *sql.DB
}

// New creates a Pool. No connection is attempted until Initialize or the
// first checkout.
func New(cfg Config) *Pool {
	cfg.applyDefaults()
	return &Pool{cfg: cfg}
}

// NewWithDB wraps an already-open handle. Used by tests to substitute a
// mocked driver.
func NewWithDB(db *sql.DB, cfg Config) *Pool {
	cfg.applyDefaults()
	db.SetMaxOpenConns(cfg.Size)
	db.SetMaxIdleConns(cfg.Size)
	return &Pool{cfg: cfg, db: db}
}

// ensure opens and verifies the underlying *sql.DB exactly once. Subsequent
// calls return the existing handle.
func (p *Pool) ensure(ctx context.Context) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return p.db, nil
	}

	db, err := sql.Open("mysql", p.cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(p.cfg.Size)
	db.SetMaxIdleConns(p.cfg.Size)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info().Int("size", p.cfg.Size).Msg("database connection pool established")
	p.db = db
	return db, nil
}

// Initialize constructs the pool up front, retrying up to MaxRetries with
// RetryDelay between attempts. It is idempotent: a no-op success when the
// pool already exists.
func (p *Pool) Initialize(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		if _, err := p.ensure(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		logger.Warn().Err(lastErr).
			Int("attempt", attempt).
			Int("max_retries", p.cfg.MaxRetries).
			Msg("pool initialization failed")
		if attempt < p.cfg.MaxRetries {
			if err := sleep(ctx, p.cfg.RetryDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("initialize pool after %d attempts: %w", p.cfg.MaxRetries, ErrUnavailable)
}

// Conn checks a single connection out of the pool and verifies it is live.
// The caller owns the connection exclusively until it hands it back through
// Release. On checkout failure it retries up to MaxRetries, initializing the
// pool first if it does not exist yet, and returns ErrUnavailable once the
// budget is spent.
func (p *Pool) Conn(ctx context.Context) (*sql.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		conn, err := p.tryConn(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_retries", p.cfg.MaxRetries).
			Msg("database connection attempt failed")
		if attempt < p.cfg.MaxRetries {
			if err := sleep(ctx, p.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}
	logger.Error().Err(lastErr).Msg("failed to get a database connection after all retries")
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (p *Pool) tryConn(ctx context.Context) (*sql.Conn, error) {
	db, err := p.ensure(ctx)
	if err != nil {
		return nil, err
	}

	connCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	conn, err := db.Conn(connCtx)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(connCtx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Release returns a connection to the pool. It is safe to call with a nil or
// already-closed handle; double releases are swallowed so cleanup paths never
// have to track whether a release already happened.
func (p *Pool) Release(conn *sql.Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		logger.Debug().Err(err).Msg("error returning connection to pool")
	}
}

// CheckHealth acquires a connection, runs a trivial liveness probe and
// releases it. Used by the readiness endpoint.
func (p *Pool) CheckHealth(ctx context.Context) bool {
	conn, err := p.Conn(ctx)
	if err != nil {
		return false
	}
	defer p.Release(conn)

	var one int
	if err := conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		logger.Error().Err(err).Msg("database health probe failed")
		return false
	}
	return true
}

// InUse reports how many connections are currently checked out. Feeds the
// db_connections_active gauge.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return 0
	}
	return p.db.Stats().InUse
}

// Close tears the pool down at process exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// sleep waits out the retry delay but aborts early when the caller's context
// is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
