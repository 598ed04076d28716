package repository

import (
	"context"
	"fmt"

	"github.com/betflow/betflow-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, identity_id, platform_id, username, password, email, current_balance, notes, is_active, is_limited, created_at, updated_at`

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.IdentityID, &a.PlatformID, &a.Username, &a.Password, &a.Email,
		&a.CurrentBalance, &a.Notes, &a.IsActive, &a.IsLimited, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

const createAccount = `
INSERT INTO accounts (id, identity_id, platform_id, username, password, email, current_balance, notes, is_active, is_limited, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
RETURNING ` + accountColumns

func (q *Queries) CreateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	row := q.db.QueryRow(ctx, createAccount, a.ID, a.IdentityID, a.PlatformID, a.Username, a.Password, a.Email,
		a.CurrentBalance, a.Notes, a.IsActive, a.IsLimited)
	created, err := scanAccount(row)
	if err != nil {
		return models.Account{}, conflictOr(fmt.Errorf("create account: %w", err), "account already exists for this identity on this platform")
	}
	return created, nil
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, getAccount, id))
	return a, notFound(err, "account", id)
}

const getAccountForUpdate = getAccount + ` FOR UPDATE`

// GetAccountForUpdate locks the account row until the surrounding transaction ends.
func (q *Queries) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (models.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, getAccountForUpdate, id))
	return a, notFound(err, "account", id)
}

const getAccountByIdentityAndPlatform = `SELECT ` + accountColumns + ` FROM accounts WHERE identity_id = $1 AND platform_id = $2`

func (q *Queries) GetAccountByIdentityAndPlatform(ctx context.Context, identityID, platformID uuid.UUID) (models.Account, error) {
	a, err := scanAccount(q.db.QueryRow(ctx, getAccountByIdentityAndPlatform, identityID, platformID))
	return a, notFoundByKey(err, "account", identityID.String()+"/"+platformID.String())
}

func (q *Queries) ListAccounts(ctx context.Context, filter AccountFilter) ([]models.Account, error) {
	var where whereBuilder
	if filter.IdentityID != nil {
		where.add("identity_id = ?", *filter.IdentityID)
	}
	if filter.PlatformID != nil {
		where.add("platform_id = ?", *filter.PlatformID)
	}
	sql := `SELECT ` + accountColumns + ` FROM accounts` + where.String() + ` ORDER BY created_at, id`
	rows, err := q.db.Query(ctx, sql, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return collect(rows, scanAccount)
}

const updateAccount = `
UPDATE accounts
SET username = $2, password = $3, email = $4, notes = $5, is_active = $6, is_limited = $7, updated_at = NOW()
WHERE id = $1
RETURNING ` + accountColumns

// UpdateAccount writes every column except the balance, which only moves through
// AddAccountBalance and SetAccountBalance.
func (q *Queries) UpdateAccount(ctx context.Context, a models.Account) (models.Account, error) {
	row := q.db.QueryRow(ctx, updateAccount, a.ID, a.Username, a.Password, a.Email, a.Notes, a.IsActive, a.IsLimited)
	updated, err := scanAccount(row)
	return updated, notFound(err, "account", a.ID)
}

const addAccountBalance = `
UPDATE accounts SET current_balance = current_balance + $1, updated_at = NOW()
WHERE id = $2
RETURNING current_balance`

// AddAccountBalance applies delta to the stored balance and returns the new value.
func (q *Queries) AddAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.db.QueryRow(ctx, addAccountBalance, delta, id).Scan(&balance)
	return balance, notFound(err, "account", id)
}

const setAccountBalance = `UPDATE accounts SET current_balance = $1, updated_at = NOW() WHERE id = $2`

func (q *Queries) SetAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (int64, error) {
	tag, err := q.db.Exec(ctx, setAccountBalance, balance, id)
	if err != nil {
		return 0, fmt.Errorf("set account balance: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteAccount = `DELETE FROM accounts WHERE id = $1`

func (q *Queries) DeleteAccount(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteAccount, id)
	if err != nil {
		return 0, fmt.Errorf("delete account: %w", err)
	}
	return tag.RowsAffected(), nil
}
