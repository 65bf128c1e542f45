package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"vehicle-checkpoint-backend/internal/repository"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
	repository.BookingRepository
	repository.CheckRecordRepository
	repository.FineRepository
	repository.SettlementRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		BookingRepository:     NewBookingRepository(db),
		CheckRecordRepository: NewCheckRecordRepository(db),
		FineRepository:        NewFineRepository(db),
		SettlementRepository:  NewSettlementRepository(db),
	}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}
