package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/arkapay/ppob-backend/internal/models"
)

const depositColumns = `id, user_id, amount, random_amount, total_amount, qris_payload,
	status, paid_at, cancelled_at, created_at, updated_at`

func scanDeposit(row pgx.Row) (*models.Deposit, error) {
	d := &models.Deposit{}
	err := row.Scan(&d.ID, &d.UserID, &d.Amount, &d.RandomAmount, &d.TotalAmount, &d.QRISPayload,
		&d.Status, &d.PaidAt, &d.CancelledAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *Repository) CreateDeposit(ctx context.Context, d *models.Deposit) error {
	query := `INSERT INTO deposits (id, user_id, amount, random_amount, total_amount, qris_payload, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query, d.ID, d.UserID, d.Amount, d.RandomAmount, d.TotalAmount, d.QRISPayload, d.Status).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create deposit: %w", mapConstraint(err))
	}
	return nil
}

func (r *Repository) GetDeposit(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`
	d, err := scanDeposit(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return d, nil
}

func (r *Repository) ListDeposits(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()
	return collectDeposits(rows)
}

// GetPendingDeposit returns the user's open deposit, if any.
func (r *Repository) GetPendingDeposit(ctx context.Context, userID uuid.UUID) (*models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE user_id = $1 AND status = 'pending'`
	d, err := scanDeposit(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get pending deposit: %w", err)
	}
	return d, nil
}

// ListPendingDeposits returns every open deposit, oldest first. Ordering
// decides which deposit wins when two carry the same total.
func (r *Repository) ListPendingDeposits(ctx context.Context) ([]models.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits
		WHERE status = 'pending' ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deposits: %w", err)
	}
	defer rows.Close()
	return collectDeposits(rows)
}

// PendingRandomAmounts returns the offsets already bound to open deposits of
// the same base amount, so a new deposit can pick a distinct total.
func (r *Repository) PendingRandomAmounts(ctx context.Context, amount decimal.Decimal) (map[int]struct{}, error) {
	query := `SELECT random_amount FROM deposits WHERE status = 'pending' AND amount = $1`
	rows, err := r.db.Query(ctx, query, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending random amounts: %w", err)
	}
	defer rows.Close()

	used := make(map[int]struct{})
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan random amount: %w", err)
		}
		used[n] = struct{}{}
	}
	return used, rows.Err()
}

func collectDeposits(rows pgx.Rows) ([]models.Deposit, error) {
	var deposits []models.Deposit
	for rows.Next() {
		var d models.Deposit
		if err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &d.RandomAmount, &d.TotalAmount, &d.QRISPayload,
			&d.Status, &d.PaidAt, &d.CancelledAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

// CreditDeposit settles a deposit and credits the user's balance with the
// paid total, random offset included, in one transaction. The status
// precondition makes the credit happen at most once no matter how many
// times a payment is observed.
func (s *Store) CreditDeposit(ctx context.Context, id uuid.UUID) (*models.Deposit, error) {
	var settled *models.Deposit
	err := s.RunInTx(ctx, func(r *Repository) error {
		query := `UPDATE deposits SET status = 'success', paid_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING ` + depositColumns
		d, err := scanDeposit(r.db.QueryRow(ctx, query, id))
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.ErrDepositNotPending
			}
			return fmt.Errorf("failed to settle deposit: %w", err)
		}
		if err := r.AddUserBalance(ctx, d.UserID, d.TotalAmount); err != nil {
			return err
		}
		settled = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

// CancelDeposit closes a pending deposit without any balance change.
func (s *Store) CancelDeposit(ctx context.Context, id, userID uuid.UUID) (*models.Deposit, error) {
	query := `UPDATE deposits SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
		RETURNING ` + depositColumns
	d, err := scanDeposit(s.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrDepositNotPending
		}
		return nil, fmt.Errorf("failed to cancel deposit: %w", err)
	}
	return d, nil
}
