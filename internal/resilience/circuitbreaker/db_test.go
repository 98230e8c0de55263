package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNewDBCircuitBreaker(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(db, nil)

	if dcb.DB() != db {
		t.Error("expected db to be set")
	}
	if dcb.Breaker().Name() != "database" {
		t.Errorf("expected default breaker 'database', got %q", dcb.Breaker().Name())
	}
	if dcb.Breaker().State() != StateClosed {
		t.Errorf("expected initial state to be closed, got %s", dcb.Breaker().State())
	}
}

func TestDBCircuitBreaker_QueryContext_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(db, nil)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "title"}).AddRow("remotive:1", "Go Engineer")
	mock.ExpectQuery("SELECT (.+) FROM listings").WillReturnRows(rows)

	result, err := dcb.QueryContext(ctx, "SELECT id, title FROM listings WHERE id = $1", "remotive:1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = result.Close() }()

	if !result.Next() {
		t.Fatal("expected at least one row")
	}
	var id, title string
	if err := result.Scan(&id, &title); err != nil {
		t.Fatalf("failed to scan row: %v", err)
	}
	if id != "remotive:1" || title != "Go Engineer" {
		t.Errorf("unexpected row id=%s title=%s", id, title)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDBCircuitBreaker_ExecContext_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(db, nil)
	mock.ExpectExec("DELETE FROM listings").WillReturnResult(sqlmock.NewResult(0, 2))

	res, err := dcb.ExecContext(context.Background(), "DELETE FROM listings WHERE posted_at < $1", time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n, _ := res.RowsAffected(); n != 2 {
		t.Errorf("expected 2 rows affected, got %d", n)
	}
}

func TestDBCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	cb := New(Config{Name: "test-db", FailureThreshold: 3, RecoveryTimeout: time.Hour}, nil)
	dcb := NewDBCircuitBreaker(db, cb)
	ctx := context.Background()

	expectedErr := errors.New("database connection failed")
	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT (.+)").WillReturnError(expectedErr)
	}
	for i := 0; i < 3; i++ {
		if _, err := dcb.QueryContext(ctx, "SELECT * FROM listings"); !errors.Is(err, expectedErr) {
			t.Errorf("attempt %d: expected db error, got %v", i+1, err)
		}
	}

	if !cb.IsOpen() {
		t.Fatalf("expected circuit to be open, state: %s", cb.State())
	}

	// No expectation is registered: reaching the database would fail the test.
	_, err = dcb.QueryContext(ctx, "SELECT * FROM listings")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDBCircuitBreaker_PingContext(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(db, nil)
	mock.ExpectPing()
	if err := dcb.PingContext(context.Background()); err != nil {
		t.Errorf("expected ping to succeed, got %v", err)
	}

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	if err := dcb.PingContext(context.Background()); err == nil {
		t.Error("expected ping error")
	}
	if got := dcb.Breaker().Status().FailureCount; got != 1 {
		t.Errorf("expected one recorded failure, got %d", got)
	}
}

func TestDBCircuitBreaker_SetDB(t *testing.T) {
	first, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = first.Close() }()
	second, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer func() { _ = second.Close() }()

	dcb := NewDBCircuitBreaker(first, nil)
	dcb.SetDB(second)

	if dcb.DB() != second {
		t.Error("expected DB() to return the swapped connection")
	}
}
