package circuitbreaker

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
)

// DBCircuitBreaker wraps a database connection with circuit breaker protection.
// It keeps a failing database from being hammered by the listing store.
type DBCircuitBreaker struct {
	cb *CircuitBreaker
	db atomic.Pointer[sql.DB]
}

// NewDBCircuitBreaker wraps db with the given breaker. A nil breaker gets DatabaseConfig.
func NewDBCircuitBreaker(db *sql.DB, cb *CircuitBreaker) *DBCircuitBreaker {
	if cb == nil {
		cb = New(DatabaseConfig(), slog.Default())
	}
	dcb := &DBCircuitBreaker{cb: cb}
	dcb.db.Store(db)
	return dcb
}

// QueryContext executes a query with circuit breaker protection.
// If the circuit is open, it returns an *OpenError without hitting the database.
func (dcb *DBCircuitBreaker) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return Do(dcb.cb, func() (*sql.Rows, error) {
		return dcb.db.Load().QueryContext(ctx, query, args...)
	})
}

// ExecContext executes a statement with circuit breaker protection.
func (dcb *DBCircuitBreaker) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return Do(dcb.cb, func() (sql.Result, error) {
		return dcb.db.Load().ExecContext(ctx, query, args...)
	})
}

// PingContext verifies the connection with circuit breaker protection.
func (dcb *DBCircuitBreaker) PingContext(ctx context.Context) error {
	_, err := dcb.cb.Execute(func() (any, error) {
		return nil, dcb.db.Load().PingContext(ctx)
	})
	return err
}

// Breaker returns the breaker guarding the connection.
func (dcb *DBCircuitBreaker) Breaker() *CircuitBreaker {
	return dcb.cb
}

// DB returns the underlying database connection.
func (dcb *DBCircuitBreaker) DB() *sql.DB {
	return dcb.db.Load()
}

// SetDB swaps the underlying connection, e.g. after a reconnect.
func (dcb *DBCircuitBreaker) SetDB(db *sql.DB) {
	dcb.db.Store(db)
}
