package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arkapay/ppob-backend/internal/models"
)

const productColumns = `id, code, name, category, COALESCE(description, ''), price, active, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.Description, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// UpsertProduct inserts by code or refreshes name, category, price and
// availability of an existing row. Used by catalog sync.
func (r *Repository) UpsertProduct(ctx context.Context, p *models.Product) error {
	query := `INSERT INTO products (id, code, name, category, description, price, active)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, p.ID, p.Code, p.Name, p.Category, p.Description, p.Price, p.Active).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *Repository) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE code = $1`
	p, err := scanProduct(r.db.QueryRow(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get product by code: %w", err)
	}
	return p, nil
}

func (r *Repository) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE active OR NOT $1 ORDER BY category, code`
	rows, err := r.db.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.Description, &p.Price, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeactivateMissingProducts marks every product whose code is absent from the
// latest catalog as unavailable.
func (r *Repository) DeactivateMissingProducts(ctx context.Context, codes []string) (int64, error) {
	query := `UPDATE products SET active = FALSE, updated_at = NOW()
		WHERE active AND code <> ALL($1)`
	tag, err := r.db.Exec(ctx, query, codes)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate missing products: %w", err)
	}
	return tag.RowsAffected(), nil
}
