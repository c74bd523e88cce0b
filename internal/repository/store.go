package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arkapay/ppob-backend/internal/models"
)

// DB is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so the
// same query methods run pooled or transaction-scoped.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store wraps a connection pool with transaction scoping. Multi-statement
// balance operations live here; plain row operations live on Repository.
type Store struct {
	*Repository
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Repository: NewRepository(pool), pool: pool}
}

// RunInTx executes fn against a transaction-scoped repository.
func (s *Store) RunInTx(ctx context.Context, fn func(r *Repository) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(NewRepository(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// mapConstraint translates postgres constraint failures into domain errors.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "users_email_key":
		return models.ErrEmailTaken
	case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "deposits_one_pending_per_user":
		return models.ErrPendingDepositExists
	case pgErr.Code == pgCheckViolation && pgErr.ConstraintName == "users_balance_check":
		return models.ErrInsufficientBalance
	}
	return err
}
