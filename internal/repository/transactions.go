package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arkapay/ppob-backend/internal/models"
)

const transactionColumns = `id, ref_id, user_id, product_id, target_id, server_id,
	amount, status, provider_trx_id, serial_number, message, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := row.Scan(&t.ID, &t.RefID, &t.UserID, &t.ProductID, &t.TargetID, &t.ServerID,
		&t.Amount, &t.Status, &t.ProviderTrxID, &t.SerialNumber, &t.Message, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	t, err := scanTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// GetTransactionByRefID looks up by the provider-facing numeric reference,
// the key provider callbacks carry.
func (r *Repository) GetTransactionByRefID(ctx context.Context, refID int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ref_id = $1`
	t, err := scanTransaction(r.db.QueryRow(ctx, query, refID))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by ref: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListUnresolvedTransactions returns pending and in-process transactions
// created before the cutoff, oldest first, for the status refresh worker.
func (r *Repository) ListUnresolvedTransactions(ctx context.Context, createdBefore time.Time, limit int) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status IN ('pending', 'process') AND created_at < $1
		ORDER BY created_at ASC LIMIT $2`
	rows, err := r.db.Query(ctx, query, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	var trxs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.RefID, &t.UserID, &t.ProductID, &t.TargetID, &t.ServerID,
			&t.Amount, &t.Status, &t.ProviderTrxID, &t.SerialNumber, &t.Message, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		trxs = append(trxs, t)
	}
	return trxs, rows.Err()
}

// CreateTransactionDebit records a purchase and debits the buyer in one
// transaction. The user row is locked first so the balance check and the
// debit see the same value.
func (s *Store) CreateTransactionDebit(ctx context.Context, trx *models.Transaction) error {
	return s.RunInTx(ctx, func(r *Repository) error {
		user, err := r.GetUserForUpdate(ctx, trx.UserID)
		if err != nil {
			return err
		}
		if user.Balance.LessThan(trx.Amount) {
			return models.ErrInsufficientBalance
		}

		query := `INSERT INTO transactions (id, user_id, product_id, target_id, server_id, amount, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING ref_id, created_at, updated_at`
		err = r.db.QueryRow(ctx, query, trx.ID, trx.UserID, trx.ProductID, trx.TargetID, trx.ServerID,
			trx.Amount, trx.Status).Scan(&trx.RefID, &trx.CreatedAt, &trx.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		return r.AddUserBalance(ctx, trx.UserID, trx.Amount.Neg())
	})
}

// UpdateTransactionResult moves a transaction to a new status, guarded by the
// allowed source statuses. Returns ErrTransactionFinalized when no row in an
// allowed status exists, which keeps terminal results immutable.
func (r *Repository) UpdateTransactionResult(ctx context.Context, id uuid.UUID, from []string, to string,
	providerTrxID, serialNumber, message *string) (*models.Transaction, error) {
	query := `UPDATE transactions SET
			status = $3,
			provider_trx_id = COALESCE($4, provider_trx_id),
			serial_number = COALESCE($5, serial_number),
			message = COALESCE($6, message),
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)
		RETURNING ` + transactionColumns
	t, err := scanTransaction(r.db.QueryRow(ctx, query, id, from, to, providerTrxID, serialNumber, message))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTransactionFinalized
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return t, nil
}

// FailTransactionRefund marks an unresolved transaction failed and returns
// the debited amount to the buyer in one database transaction. The status
// precondition makes the refund happen at most once; a transaction already
// in a terminal status is left untouched.
func (s *Store) FailTransactionRefund(ctx context.Context, id uuid.UUID, message *string) (*models.Transaction, error) {
	var failed *models.Transaction
	err := s.RunInTx(ctx, func(r *Repository) error {
		query := `UPDATE transactions SET status = 'failed',
				message = COALESCE($2, message), updated_at = NOW()
			WHERE id = $1 AND status IN ('pending', 'process')
			RETURNING ` + transactionColumns
		t, err := scanTransaction(r.db.QueryRow(ctx, query, id, message))
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrTransactionFinalized
			}
			return fmt.Errorf("failed to fail transaction: %w", err)
		}
		if err := r.AddUserBalance(ctx, t.UserID, t.Amount); err != nil {
			return err
		}
		failed = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

// MarkTransactionRefund relabels a failed transaction as refund. The money
// already went back when the transaction failed, so there is no balance
// effect. Admin tooling only.
func (r *Repository) MarkTransactionRefund(ctx context.Context, id uuid.UUID, message *string) (*models.Transaction, error) {
	query := `UPDATE transactions SET status = 'refund',
			message = COALESCE($2, message), updated_at = NOW()
		WHERE id = $1 AND status = 'failed'
		RETURNING ` + transactionColumns
	t, err := scanTransaction(r.db.QueryRow(ctx, query, id, message))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to mark transaction refunded: %w", err)
	}
	return t, nil
}
