package service

import (
	"context"
	"testing"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.Register(ctx, RegisterUserCommand{
		Username: "giulia",
		Email:    "giulia@example.com",
		Password: "s3cret-pass",
		Role:     "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.Equal(t, 1, f.notifier.count(gateway.AlertWelcome))

	got, err := f.users.Authenticate(ctx, "giulia", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.users.Authenticate(ctx, "giulia", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.users.Authenticate(ctx, "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, RegisterUserCommand{Username: "marco", Email: "marco@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.users.Register(ctx, RegisterUserCommand{Username: "marco", Email: "marco@example.com", Password: "long-enough", Role: "ROOT"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	user, err := f.users.Register(ctx, RegisterUserCommand{Username: "marco", Email: "marco@example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, user.Role)

	_, err = f.users.Register(ctx, RegisterUserCommand{Username: "marco", Email: "other@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}
