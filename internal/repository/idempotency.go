package repository

import (
	"context"
	"time"
)

// IdempotencyKey mirrors one reserved or finalized request replay record.
type IdempotencyKey struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
	CreatedAt      time.Time
}

const idempotencyColumns = `idempotency_key, request_hash, method, path,
	response_status, response_body, content_type, in_progress, created_at`

func (r *Repository) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKey, error) {
	var row IdempotencyKey
	query := `SELECT ` + idempotencyColumns + ` FROM idempotency_keys WHERE idempotency_key = $1`
	err := r.db.QueryRow(ctx, query, key).Scan(&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress, &row.CreatedAt)
	return row, err
}

// ReserveIdempotencyKey claims a key for the current request. The insert is
// a no-op when the key already exists; pgx reports that as no returned row.
func (r *Repository) ReserveIdempotencyKey(ctx context.Context, key, requestHash, method, path string) (IdempotencyKey, error) {
	var row IdempotencyKey
	query := `INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING ` + idempotencyColumns
	err := r.db.QueryRow(ctx, query, key, requestHash, method, path).Scan(
		&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress, &row.CreatedAt)
	return row, err
}

func (r *Repository) FinalizeIdempotencyKey(ctx context.Context, key, requestHash string, status int32, body []byte, contentType string) (IdempotencyKey, error) {
	var row IdempotencyKey
	query := `UPDATE idempotency_keys SET
			response_status = $3, response_body = $4, content_type = $5, in_progress = FALSE
		WHERE idempotency_key = $1 AND request_hash = $2
		RETURNING ` + idempotencyColumns
	err := r.db.QueryRow(ctx, query, key, requestHash, status, body, contentType).Scan(
		&row.IdempotencyKey, &row.RequestHash, &row.Method, &row.Path,
		&row.ResponseStatus, &row.ResponseBody, &row.ContentType, &row.InProgress, &row.CreatedAt)
	return row, err
}
