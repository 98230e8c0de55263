// Package db provides the PostgreSQL connection, schema and listing store.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	pkgconfig "jobscout/internal/pkg/config"
)

// ErrNoDSN is returned by Open when DATABASE_URL is not configured.
var ErrNoDSN = errors.New("DATABASE_URL not set")

// Config holds the DSN and connection pool settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// DefaultConfig returns the default connection pool configuration.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// LoadConfigFromEnv reads DATABASE_URL and the DB_* pool variables.
func LoadConfigFromEnv(metrics *pkgconfig.ConfigMetrics, logger *slog.Logger) Config {
	d := DefaultConfig()
	tr := pkgconfig.NewTracker(metrics)
	cfg := Config{
		DSN:             pkgconfig.LoadEnvString("DATABASE_URL", ""),
		MaxOpenConns:    pkgconfig.Track(tr, "max_open_conns", pkgconfig.LoadEnvInt("DB_MAX_OPEN_CONNS", d.MaxOpenConns, pkgconfig.InRange(1, 500))),
		MaxIdleConns:    pkgconfig.Track(tr, "max_idle_conns", pkgconfig.LoadEnvInt("DB_MAX_IDLE_CONNS", d.MaxIdleConns, pkgconfig.InRange(0, 500))),
		ConnMaxLifetime: pkgconfig.Track(tr, "conn_max_lifetime", pkgconfig.LoadEnvDuration("DB_CONN_MAX_LIFETIME", d.ConnMaxLifetime, pkgconfig.ValidatePositiveDuration)),
		ConnMaxIdleTime: pkgconfig.Track(tr, "conn_max_idle_time", pkgconfig.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", d.ConnMaxIdleTime, pkgconfig.ValidatePositiveDuration)),
		PingTimeout:     d.PingTimeout,
	}
	tr.Finish(logger)
	return cfg
}

// Open creates the pool, applies the pool settings and pings the server.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, ErrNoDSN
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	configurePool(db, cfg)

	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = DefaultConfig().PingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connection established",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))
	return db, nil
}

func configurePool(db *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}
