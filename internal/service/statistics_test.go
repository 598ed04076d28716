package service

import (
	"context"
	"testing"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfitForIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.seedAccount(t, "0")

	_, err := f.ledger.RecordDeposit(ctx, DepositCommand{AccountID: acc.ID, Amount: dec("100.00")})
	require.NoError(t, err)
	_, err = f.ledger.RecordWithdrawal(ctx, WithdrawalCommand{AccountID: acc.ID, Amount: dec("30.00")})
	require.NoError(t, err)
	_, err = f.accounts.SetBalance(ctx, acc.ID, dec("85.00"), nil)
	require.NoError(t, err)

	profit, err := f.stats.ProfitForIdentity(ctx, acc.IdentityID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", profit.TotalDeposits.StringFixed(2))
	assert.Equal(t, "30.00", profit.TotalWithdrawals.StringFixed(2))
	assert.Equal(t, "85.00", profit.TotalCurrentBalance.StringFixed(2))
	assert.Equal(t, "15.00", profit.NetProfit.StringFixed(2))
	assert.Equal(t, int64(1), profit.TotalAccounts)
	assert.Equal(t, "Mario Rossi", profit.IdentityFullName)

	_, err = f.stats.ProfitForIdentity(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfitRankings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	platform := f.platform(t, "Snai")

	seed := func(fiscal, deposit, balance string) uuid.UUID {
		i := f.identity(t, "Id", fiscal, fiscal)
		acc := f.account(t, i.ID, platform.ID, "0")
		_, err := f.ledger.RecordDeposit(ctx, DepositCommand{AccountID: acc.ID, Amount: dec(deposit)})
		require.NoError(t, err)
		_, err = f.accounts.SetBalance(ctx, acc.ID, dec(balance), nil)
		require.NoError(t, err)
		return i.ID
	}
	small := seed("AAA", "100", "110")
	big := seed("BBB", "100", "160")
	flat := seed("CCC", "50", "50")
	mild := seed("DDD", "100", "90")
	heavy := seed("EEE", "100", "20")

	all, err := f.stats.AllIdentityProfits(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	var order []uuid.UUID
	for _, p := range all {
		order = append(order, p.IdentityID)
	}
	assert.Equal(t, []uuid.UUID{big, small, flat, mild, heavy}, order)

	profitable, err := f.stats.ProfitableIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, profitable, 2)
	assert.Equal(t, big, profitable[0].IdentityID)

	unprofitable, err := f.stats.UnprofitableIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, unprofitable, 2)
	assert.Equal(t, heavy, unprofitable[0].IdentityID)
	assert.Equal(t, mild, unprofitable[1].IdentityID)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expiring, err := f.identities.Create(ctx, CreateIdentityCommand{FirstName: "Anna", LastName: "Bianchi", FiscalCode: "BNCNNA90", DocumentExpiryDate: day(2026, 3, 15)})
	require.NoError(t, err)
	_, err = f.identities.Create(ctx, CreateIdentityCommand{FirstName: "Luca", LastName: "Verdi", FiscalCode: "VRDLCU85", DocumentExpiryDate: day(2026, 5, 1)})
	require.NoError(t, err)
	platform := f.platform(t, "Eurobet")
	acc := f.account(t, expiring.ID, platform.ID, "0")
	limited := true
	_, err = f.accounts.Update(ctx, acc.ID, AccountPatch{IsLimited: &limited}, nil)
	require.NoError(t, err)

	_, err = f.ledger.RecordDeposit(ctx, DepositCommand{AccountID: acc.ID, Amount: dec("200")})
	require.NoError(t, err)
	_, err = f.ledger.RecordWithdrawal(ctx, WithdrawalCommand{AccountID: acc.ID, Amount: dec("50")})
	require.NoError(t, err)

	active := domain.PromotionActive
	_, err = f.promotions.Create(ctx, CreatePromotionCommand{AccountID: acc.ID, Description: "soon", DeadlineDate: day(2026, 3, 12), Status: &active, RolloverTarget: decimal.NewNullDecimal(dec("10"))})
	require.NoError(t, err)
	_, err = f.promotions.Create(ctx, CreatePromotionCommand{AccountID: acc.ID, Description: "later", DeadlineDate: day(2026, 4, 30), Status: &active})
	require.NoError(t, err)
	_, err = f.promotions.Create(ctx, CreatePromotionCommand{AccountID: acc.ID, Description: "pending"})
	require.NoError(t, err)

	d, err := f.stats.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.TotalIdentities)
	assert.Equal(t, int64(1), d.TotalAccounts)
	assert.Equal(t, int64(1), d.ActiveAccounts)
	assert.Equal(t, int64(1), d.LimitedAccounts)
	assert.Equal(t, int64(1), d.TotalPlatforms)
	assert.Equal(t, "200.00", d.TotalDeposits.StringFixed(2))
	assert.Equal(t, "50.00", d.TotalWithdrawals.StringFixed(2))
	assert.Equal(t, "150.00", d.TotalCurrentBalance.StringFixed(2))
	assert.Equal(t, "0.00", d.OverallNetProfit.StringFixed(2))
	assert.Equal(t, int64(2), d.ActivePromotions)
	assert.Equal(t, int64(1), d.PromotionsByStatus[domain.PromotionPending])
	assert.Equal(t, int64(0), d.CompletedPromotions)
	assert.Equal(t, int64(1), d.ExpiringDocumentsCount)
	assert.Equal(t, int64(1), d.ExpiringPromotionsCount)
	assert.Len(t, d.TopIdentitiesByProfit, 2)
}
