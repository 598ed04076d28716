package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/betflow/betflow-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const platformColumns = `id, name, website_url, type, created_at, updated_at`

func scanPlatform(row pgx.Row) (models.Platform, error) {
	var p models.Platform
	err := row.Scan(&p.ID, &p.Name, &p.WebsiteURL, &p.Type, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const createPlatform = `
INSERT INTO platforms (id, name, website_url, type, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING ` + platformColumns

func (q *Queries) CreatePlatform(ctx context.Context, p models.Platform) (models.Platform, error) {
	created, err := scanPlatform(q.db.QueryRow(ctx, createPlatform, p.ID, p.Name, p.WebsiteURL, p.Type))
	if err != nil {
		return models.Platform{}, conflictOr(fmt.Errorf("create platform: %w", err), "platform already exists with name: "+p.Name)
	}
	return created, nil
}

const getPlatform = `SELECT ` + platformColumns + ` FROM platforms WHERE id = $1`

func (q *Queries) GetPlatform(ctx context.Context, id uuid.UUID) (models.Platform, error) {
	p, err := scanPlatform(q.db.QueryRow(ctx, getPlatform, id))
	return p, notFound(err, "platform", id)
}

const getPlatformByName = `SELECT ` + platformColumns + ` FROM platforms WHERE lower(name) = lower($1)`

func (q *Queries) GetPlatformByName(ctx context.Context, name string) (models.Platform, error) {
	p, err := scanPlatform(q.db.QueryRow(ctx, getPlatformByName, name))
	return p, notFoundByKey(err, "platform", name)
}

func (q *Queries) ListPlatforms(ctx context.Context, filter PlatformFilter) ([]models.Platform, error) {
	var where whereBuilder
	if filter.Type != nil {
		where.add("type = ?", *filter.Type)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		where.add("name ILIKE '%' || ? || '%'", name)
	}
	sql := `SELECT ` + platformColumns + ` FROM platforms` + where.String() + ` ORDER BY name`
	rows, err := q.db.Query(ctx, sql, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	return collect(rows, scanPlatform)
}

const updatePlatform = `
UPDATE platforms SET name = $2, website_url = $3, type = $4, updated_at = NOW()
WHERE id = $1
RETURNING ` + platformColumns

func (q *Queries) UpdatePlatform(ctx context.Context, p models.Platform) (models.Platform, error) {
	updated, err := scanPlatform(q.db.QueryRow(ctx, updatePlatform, p.ID, p.Name, p.WebsiteURL, p.Type))
	if err != nil {
		return models.Platform{}, conflictOr(notFound(err, "platform", p.ID), "platform already exists with name: "+p.Name)
	}
	return updated, nil
}

const deletePlatform = `DELETE FROM platforms WHERE id = $1`

func (q *Queries) DeletePlatform(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePlatform, id)
	if err != nil {
		return 0, fmt.Errorf("delete platform: %w", err)
	}
	return tag.RowsAffected(), nil
}
