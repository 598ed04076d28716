package service

import (
	"context"
	"testing"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateAccountRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seedAccount(t, "0")

	_, err := f.accounts.Create(ctx, CreateAccountCommand{IdentityID: acc.IdentityID, PlatformID: acc.PlatformID, Username: "second"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	other := f.platform(t, "Sisal")
	_, err = f.accounts.Create(ctx, CreateAccountCommand{IdentityID: acc.IdentityID, PlatformID: other.ID, Username: "second"})
	assert.NoError(t, err)
}

func TestIdentityFiscalCodeIsUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.identity(t, "Mario", "Rossi", "rssmra80a01h501u")
	assert.Equal(t, "RSSMRA80A01H501U", first.FiscalCode)
	assert.Equal(t, "Mario Rossi", first.FullName)

	_, err := f.identities.Create(ctx, CreateIdentityCommand{FirstName: "Other", LastName: "Person", FiscalCode: " RSSMRA80A01H501U "})
	assert.ErrorIs(t, err, domain.ErrConflict)

	second := f.identity(t, "Anna", "Bianchi", "BNCNNA90")
	code := "RSSMRA80A01H501U"
	_, err = f.identities.Update(ctx, second.ID, IdentityPatch{FiscalCode: &code}, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.identities.Create(ctx, CreateIdentityCommand{FirstName: "No", LastName: "Code"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPlatformNameIsUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.platform(t, "Betfair")

	_, err := f.platforms.Create(ctx, CreatePlatformCommand{Name: "Betfair", Type: domain.PlatformExchange})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.platforms.Create(ctx, CreatePlatformCommand{Name: "Nowhere", Type: "LOTTERY"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteIdentityCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seedAccount(t, "0")

	op, err := f.ledger.RecordDeposit(ctx, DepositCommand{AccountID: acc.ID, Amount: dec("10")})
	require.NoError(t, err)
	promo, err := f.promotions.Create(ctx, CreatePromotionCommand{AccountID: acc.ID, Description: "bonus"})
	require.NoError(t, err)

	view, err := f.identities.Get(ctx, acc.IdentityID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.AccountsCount)

	require.NoError(t, f.identities.Delete(ctx, acc.IdentityID, nil))

	_, err = f.accounts.Get(ctx, acc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.ledger.GetOperation(ctx, op.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.promotions.Get(ctx, promo.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The platform survives.
	_, err = f.platforms.Get(ctx, acc.PlatformID)
	assert.NoError(t, err)
}

func TestDeletePlatformCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seedAccount(t, "0")

	_, err := f.ledger.RecordDeposit(ctx, DepositCommand{AccountID: acc.ID, Amount: dec("10")})
	require.NoError(t, err)

	require.NoError(t, f.platforms.Delete(ctx, acc.PlatformID, nil))
	accounts, err := f.accounts.List(ctx, repository.AccountFilter{IdentityID: &acc.IdentityID})
	require.NoError(t, err)
	assert.Empty(t, accounts)

	assert.ErrorIs(t, f.platforms.Delete(ctx, uuid.New(), nil), domain.ErrNotFound)
}

func TestSetBalanceRejectsNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seedAccount(t, "5")

	_, err := f.accounts.SetBalance(ctx, acc.ID, dec("-0.01"), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "5.00", f.balance(t, acc.ID))

	updated, err := f.accounts.SetBalance(ctx, acc.ID, dec("12.345"), nil)
	require.NoError(t, err)
	assert.Equal(t, "12.35", updated.CurrentBalance.StringFixed(2))
}

func TestAccountUpdateLeavesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seedAccount(t, "40")

	inactive := false
	email := "mario@example.com"
	updated, err := f.accounts.Update(ctx, acc.ID, AccountPatch{IsActive: &inactive, Email: &email}, nil)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, email, updated.Email)
	assert.Equal(t, "40.00", updated.CurrentBalance.StringFixed(2))
}
