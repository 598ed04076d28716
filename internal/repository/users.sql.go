package repository

import (
	"context"
	"fmt"

	"github.com/betflow/betflow-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, role, created_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.CreatedAt)
	return u, err
}

const createUser = `
INSERT INTO users (id, username, email, password_hash, first_name, last_name, role, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	row := q.db.QueryRow(ctx, createUser, u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role)
	created, err := scanUser(row)
	if err != nil {
		return models.User{}, conflictOr(fmt.Errorf("create user: %w", err), "username already exists: "+u.Username)
	}
	return created, nil
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, getUser, id))
	return u, notFound(err, "user", id)
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, getUserByUsername, username))
	return u, notFoundByKey(err, "user", username)
}
