package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	uniqueViolation = "23505"

	// advisory lock class for per-user serialization
	userLockClass = 4201
)

// PostgresStore runs units of work in postgres transactions
type PostgresStore struct {
	db      *sqlx.DB
	reports ReportRepository
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		reports: NewReportRepository(db),
	}
}

// Atomic runs fn in a READ COMMITTED transaction. Counters are protected by
// row locks taken through the Get...ForUpdate methods, so every statement
// after a lock sees the latest committed state.
func (s *PostgresStore) Atomic(ctx context.Context, fn TxFunc) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Reports() ReportRepository {
	return s.reports
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func newRepositories(db sqlx.ExtContext) Repositories {
	return Repositories{
		Titles:       NewTitleRepository(db),
		Loans:        NewLoanRepository(db),
		Reservations: NewReservationRepository(db),
		Payments:     NewPaymentRepository(db),
		Users:        &advisoryUserLocker{db: db},
	}
}

type advisoryUserLocker struct {
	db sqlx.ExtContext
}

func (l *advisoryUserLocker) Lock(ctx context.Context, userID string) error {
	_, err := l.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, userLockClass, userID)
	return err
}

// translate maps driver errors onto the repository sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}
