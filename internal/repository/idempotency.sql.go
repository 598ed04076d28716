package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type IdempotencyKey struct {
	IdempotencyKey string
	RequestHash    string
	InProgress     bool
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
}

const idempotencyColumns = `idempotency_key, request_hash, in_progress, COALESCE(response_status, 0), COALESCE(response_body, ''::bytea), COALESCE(content_type, '')`

func scanIdempotencyKey(row pgx.Row) (IdempotencyKey, error) {
	var k IdempotencyKey
	err := row.Scan(&k.IdempotencyKey, &k.RequestHash, &k.InProgress, &k.ResponseStatus, &k.ResponseBody, &k.ContentType)
	return k, err
}

const getIdempotencyKey = `SELECT ` + idempotencyColumns + ` FROM idempotency_keys WHERE idempotency_key = $1`

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKey, error) {
	return scanIdempotencyKey(q.db.QueryRow(ctx, getIdempotencyKey, key))
}

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

const reserveIdempotencyKey = `
INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path, in_progress, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING ` + idempotencyColumns

// ReserveIdempotencyKey returns pgx.ErrNoRows when the key is already taken.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (IdempotencyKey, error) {
	return scanIdempotencyKey(q.db.QueryRow(ctx, reserveIdempotencyKey, arg.IdempotencyKey, arg.RequestHash, arg.Method, arg.Path))
}

type FinalizeIdempotencyKeyParams struct {
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	IdempotencyKey string
	RequestHash    string
}

const finalizeIdempotencyKey = `
UPDATE idempotency_keys
SET in_progress = FALSE, response_status = $1, response_body = $2, content_type = $3, updated_at = NOW()
WHERE idempotency_key = $4 AND request_hash = $5
RETURNING ` + idempotencyColumns

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKey, error) {
	return scanIdempotencyKey(q.db.QueryRow(ctx, finalizeIdempotencyKey,
		arg.ResponseStatus, arg.ResponseBody, arg.ContentType, arg.IdempotencyKey, arg.RequestHash))
}

const releaseIdempotencyKey = `
DELETE FROM idempotency_keys
WHERE idempotency_key = $1 AND request_hash = $2 AND in_progress`

// ReleaseIdempotencyKey drops an unfinished reservation.
func (q *Queries) ReleaseIdempotencyKey(ctx context.Context, key, requestHash string) (int64, error) {
	tag, err := q.db.Exec(ctx, releaseIdempotencyKey, key, requestHash)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
