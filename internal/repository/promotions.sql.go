package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/betflow/betflow-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const promotionColumns = `id, account_id, description, bonus_amount, rollover_target, rollover_done, deadline_date, status, notes, created_at, updated_at`

func scanPromotion(row pgx.Row) (models.Promotion, error) {
	var p models.Promotion
	err := row.Scan(&p.ID, &p.AccountID, &p.Description, &p.BonusAmount, &p.RolloverTarget, &p.RolloverDone,
		&p.DeadlineDate, &p.Status, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const createPromotion = `
INSERT INTO promotions (id, account_id, description, bonus_amount, rollover_target, rollover_done, deadline_date, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
RETURNING ` + promotionColumns

func (q *Queries) CreatePromotion(ctx context.Context, p models.Promotion) (models.Promotion, error) {
	row := q.db.QueryRow(ctx, createPromotion, p.ID, p.AccountID, p.Description, p.BonusAmount, p.RolloverTarget,
		p.RolloverDone, p.DeadlineDate, p.Status, p.Notes)
	created, err := scanPromotion(row)
	if err != nil {
		return models.Promotion{}, fmt.Errorf("create promotion: %w", err)
	}
	return created, nil
}

const getPromotion = `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

func (q *Queries) GetPromotion(ctx context.Context, id uuid.UUID) (models.Promotion, error) {
	p, err := scanPromotion(q.db.QueryRow(ctx, getPromotion, id))
	return p, notFound(err, "promotion", id)
}

const getPromotionForUpdate = getPromotion + ` FOR UPDATE`

func (q *Queries) GetPromotionForUpdate(ctx context.Context, id uuid.UUID) (models.Promotion, error) {
	p, err := scanPromotion(q.db.QueryRow(ctx, getPromotionForUpdate, id))
	return p, notFound(err, "promotion", id)
}

func (q *Queries) ListPromotions(ctx context.Context, filter PromotionFilter) ([]models.Promotion, error) {
	var where whereBuilder
	if filter.AccountID != nil {
		where.add("account_id = ?", *filter.AccountID)
	}
	if filter.Status != nil {
		where.add("status = ?", *filter.Status)
	}
	if filter.DeadlineFrom != nil {
		where.add("deadline_date >= ?", *filter.DeadlineFrom)
	}
	if filter.DeadlineTo != nil {
		where.add("deadline_date <= ?", *filter.DeadlineTo)
	}
	sql := `SELECT ` + promotionColumns + ` FROM promotions` + where.String() + ` ORDER BY deadline_date NULLS LAST, created_at`
	rows, err := q.db.Query(ctx, sql, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	return collect(rows, scanPromotion)
}

const updatePromotion = `
UPDATE promotions
SET description = $2, bonus_amount = $3, rollover_target = $4, rollover_done = $5, deadline_date = $6, status = $7, notes = $8, updated_at = NOW()
WHERE id = $1
RETURNING ` + promotionColumns

func (q *Queries) UpdatePromotion(ctx context.Context, p models.Promotion) (models.Promotion, error) {
	row := q.db.QueryRow(ctx, updatePromotion, p.ID, p.Description, p.BonusAmount, p.RolloverTarget, p.RolloverDone,
		p.DeadlineDate, p.Status, p.Notes)
	updated, err := scanPromotion(row)
	return updated, notFound(err, "promotion", p.ID)
}

const expirePromotions = `
UPDATE promotions SET status = 'EXPIRED', updated_at = NOW()
WHERE status = 'ACTIVE' AND deadline_date < $1
RETURNING ` + promotionColumns

// ExpirePromotions flips ACTIVE promotions whose deadline is strictly before
// the given date to EXPIRED and returns them.
func (q *Queries) ExpirePromotions(ctx context.Context, before time.Time) ([]models.Promotion, error) {
	rows, err := q.db.Query(ctx, expirePromotions, before)
	if err != nil {
		return nil, fmt.Errorf("expire promotions: %w", err)
	}
	return collect(rows, scanPromotion)
}

const deletePromotion = `DELETE FROM promotions WHERE id = $1`

func (q *Queries) DeletePromotion(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePromotion, id)
	if err != nil {
		return 0, fmt.Errorf("delete promotion: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deletePromotionsByAccount = `DELETE FROM promotions WHERE account_id = $1`

func (q *Queries) DeletePromotionsByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePromotionsByAccount, accountID)
	if err != nil {
		return 0, fmt.Errorf("delete account promotions: %w", err)
	}
	return tag.RowsAffected(), nil
}
