package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"jobscout/internal/resilience/circuitbreaker"
)

// Opener opens a fresh, pinged connection pool.
type Opener func(ctx context.Context) (*sql.DB, error)

// Reconnector replaces the pool behind a DBCircuitBreaker. It is registered
// as the restarter and probe of the "database" component.
type Reconnector struct {
	dcb    *circuitbreaker.DBCircuitBreaker
	open   Opener
	logger *slog.Logger
}

func NewReconnector(dcb *circuitbreaker.DBCircuitBreaker, open Opener, logger *slog.Logger) *Reconnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconnector{dcb: dcb, open: open, logger: logger}
}

// Restart opens a new pool, swaps it in and closes the old one.
// On failure the old pool stays in place.
func (r *Reconnector) Restart(ctx context.Context) error {
	fresh, err := r.open(ctx)
	if err != nil {
		return fmt.Errorf("reconnect database: %w", err)
	}
	old := r.dcb.DB()
	r.dcb.SetDB(fresh)
	if old != nil {
		if err := old.Close(); err != nil {
			r.logger.Warn("failed to close previous database pool", slog.Any("error", err))
		}
	}
	r.logger.Info("database pool replaced")
	return nil
}

// Probe pings the current pool without going through the breaker, so it
// still works while the breaker is open.
func (r *Reconnector) Probe(ctx context.Context) error {
	db := r.dcb.DB()
	if db == nil {
		return fmt.Errorf("database probe: no pool")
	}
	return db.PingContext(ctx)
}
