package repository

import (
	"context"
	"fmt"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// identityTotals computes every identity's sums in one statement. Missing sums
// come back as zero.
const identityTotals = `
SELECT i.id, i.first_name, i.last_name,
	COALESCE(ops.deposits, 0), COALESCE(ops.withdrawals, 0),
	COALESCE(acc.balance, 0), COALESCE(acc.accounts, 0)
FROM identities i
LEFT JOIN (
	SELECT identity_id, SUM(current_balance) AS balance, COUNT(*) AS accounts
	FROM accounts GROUP BY identity_id
) acc ON acc.identity_id = i.id
LEFT JOIN (
	SELECT a.identity_id,
		SUM(o.amount) FILTER (WHERE o.kind = 'DEPOSIT') AS deposits,
		SUM(o.amount) FILTER (WHERE o.kind = 'WITHDRAWAL') AS withdrawals
	FROM financial_operations o JOIN accounts a ON a.id = o.account_id
	GROUP BY a.identity_id
) ops ON ops.identity_id = i.id`

func scanIdentityTotals(row pgx.Row) (models.IdentityTotals, error) {
	var t models.IdentityTotals
	err := row.Scan(&t.IdentityID, &t.FirstName, &t.LastName, &t.TotalDeposits, &t.TotalWithdrawals, &t.TotalBalance, &t.AccountsCount)
	return t, err
}

func (q *Queries) GetIdentityTotals(ctx context.Context, identityID uuid.UUID) (models.IdentityTotals, error) {
	t, err := scanIdentityTotals(q.db.QueryRow(ctx, identityTotals+` WHERE i.id = $1`, identityID))
	return t, notFound(err, "identity", identityID)
}

func (q *Queries) ListIdentityTotals(ctx context.Context) ([]models.IdentityTotals, error) {
	rows, err := q.db.Query(ctx, identityTotals+` ORDER BY i.created_at, i.id`)
	if err != nil {
		return nil, fmt.Errorf("list identity totals: %w", err)
	}
	return collect(rows, scanIdentityTotals)
}

const dashboardTotals = `
SELECT
	(SELECT COUNT(*) FROM identities),
	(SELECT COUNT(*) FROM accounts),
	(SELECT COUNT(*) FROM accounts WHERE is_active),
	(SELECT COUNT(*) FROM accounts WHERE is_limited),
	(SELECT COUNT(*) FROM platforms),
	(SELECT COALESCE(SUM(amount), 0) FROM financial_operations WHERE kind = 'DEPOSIT'),
	(SELECT COALESCE(SUM(amount), 0) FROM financial_operations WHERE kind = 'WITHDRAWAL'),
	(SELECT COALESCE(SUM(current_balance), 0) FROM accounts),
	(SELECT COUNT(*) FROM identities WHERE document_expiry_date BETWEEN $1 AND $2),
	(SELECT COUNT(*) FROM promotions WHERE status = 'ACTIVE' AND deadline_date <= $2)`

const promotionsByStatus = `SELECT status, COUNT(*) FROM promotions GROUP BY status`

func (q *Queries) GetDashboardTotals(ctx context.Context, arg DashboardParams) (models.DashboardTotals, error) {
	var t models.DashboardTotals
	err := q.db.QueryRow(ctx, dashboardTotals, arg.Today, arg.Horizon).Scan(
		&t.Identities, &t.Accounts, &t.ActiveAccounts, &t.LimitedAccounts, &t.Platforms,
		&t.TotalDeposits, &t.TotalWithdrawals, &t.TotalBalance,
		&t.ExpiringDocuments, &t.ExpiringPromotions,
	)
	if err != nil {
		return models.DashboardTotals{}, fmt.Errorf("dashboard totals: %w", err)
	}

	rows, err := q.db.Query(ctx, promotionsByStatus)
	if err != nil {
		return models.DashboardTotals{}, fmt.Errorf("count promotions by status: %w", err)
	}
	defer rows.Close()
	t.PromotionsByStatus = make(map[domain.PromotionStatus]int64)
	for rows.Next() {
		var status domain.PromotionStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return models.DashboardTotals{}, fmt.Errorf("scan promotion status count: %w", err)
		}
		t.PromotionsByStatus[status] = count
	}
	return t, rows.Err()
}
