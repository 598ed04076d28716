package repository

import (
	"context"
	"fmt"

	"github.com/betflow/betflow-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const identityColumns = `id, first_name, last_name, fiscal_code, document_expiry_date, notes, manager_id, created_at, updated_at`

func scanIdentity(row pgx.Row) (models.Identity, error) {
	var i models.Identity
	err := row.Scan(&i.ID, &i.FirstName, &i.LastName, &i.FiscalCode, &i.DocumentExpiryDate, &i.Notes, &i.ManagerID, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createIdentity = `
INSERT INTO identities (id, first_name, last_name, fiscal_code, document_expiry_date, notes, manager_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
RETURNING ` + identityColumns

func (q *Queries) CreateIdentity(ctx context.Context, i models.Identity) (models.Identity, error) {
	row := q.db.QueryRow(ctx, createIdentity, i.ID, i.FirstName, i.LastName, i.FiscalCode, i.DocumentExpiryDate, i.Notes, i.ManagerID)
	created, err := scanIdentity(row)
	if err != nil {
		return models.Identity{}, conflictOr(fmt.Errorf("create identity: %w", err), "identity already exists with fiscal code: "+i.FiscalCode)
	}
	return created, nil
}

const getIdentity = `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`

func (q *Queries) GetIdentity(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	i, err := scanIdentity(q.db.QueryRow(ctx, getIdentity, id))
	return i, notFound(err, "identity", id)
}

const getIdentityByFiscalCode = `SELECT ` + identityColumns + ` FROM identities WHERE fiscal_code = $1`

func (q *Queries) GetIdentityByFiscalCode(ctx context.Context, fiscalCode string) (models.Identity, error) {
	i, err := scanIdentity(q.db.QueryRow(ctx, getIdentityByFiscalCode, fiscalCode))
	return i, notFoundByKey(err, "identity", fiscalCode)
}

func (q *Queries) ListIdentities(ctx context.Context, filter IdentityFilter) ([]models.Identity, error) {
	var where whereBuilder
	if filter.ManagerID != nil {
		where.add("manager_id = ?", *filter.ManagerID)
	}
	if filter.DocumentExpiryFrom != nil {
		where.add("document_expiry_date >= ?", *filter.DocumentExpiryFrom)
	}
	if filter.DocumentExpiryTo != nil {
		where.add("document_expiry_date <= ?", *filter.DocumentExpiryTo)
	}
	sql := `SELECT ` + identityColumns + ` FROM identities` + where.String() + ` ORDER BY created_at, id`
	rows, err := q.db.Query(ctx, sql, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return collect(rows, scanIdentity)
}

const updateIdentity = `
UPDATE identities
SET first_name = $2, last_name = $3, fiscal_code = $4, document_expiry_date = $5, notes = $6, manager_id = $7, updated_at = NOW()
WHERE id = $1
RETURNING ` + identityColumns

func (q *Queries) UpdateIdentity(ctx context.Context, i models.Identity) (models.Identity, error) {
	row := q.db.QueryRow(ctx, updateIdentity, i.ID, i.FirstName, i.LastName, i.FiscalCode, i.DocumentExpiryDate, i.Notes, i.ManagerID)
	updated, err := scanIdentity(row)
	if err != nil {
		return models.Identity{}, conflictOr(notFound(err, "identity", i.ID), "identity already exists with fiscal code: "+i.FiscalCode)
	}
	return updated, nil
}

const deleteIdentity = `DELETE FROM identities WHERE id = $1`

func (q *Queries) DeleteIdentity(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteIdentity, id)
	if err != nil {
		return 0, fmt.Errorf("delete identity: %w", err)
	}
	return tag.RowsAffected(), nil
}
