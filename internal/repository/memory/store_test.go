package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func seedAccount(t *testing.T, q repository.Querier) models.Account {
	t.Helper()
	ctx := context.Background()

	identity, err := q.CreateIdentity(ctx, models.Identity{ID: uuid.New(), FirstName: "Mario", LastName: "Rossi", FiscalCode: "RSSMRA80A01H501U"})
	require.NoError(t, err)
	platform, err := q.CreatePlatform(ctx, models.Platform{ID: uuid.New(), Name: "Bet365", Type: domain.PlatformBookmaker})
	require.NoError(t, err)
	account, err := q.CreateAccount(ctx, models.Account{
		ID:             uuid.New(),
		IdentityID:     identity.ID,
		PlatformID:     platform.ID,
		Username:       "mario",
		CurrentBalance: decimal.Zero,
		IsActive:       true,
	})
	require.NoError(t, err)
	return account
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	account := seedAccount(t, store.Queries())

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(q repository.Querier) error {
		if _, err := q.AddAccountBalance(ctx, account.ID, decimal.NewFromInt(100)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Queries().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, got.CurrentBalance.IsZero())
}

func TestRunInTxCommits(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	account := seedAccount(t, store.Queries())

	err := store.RunInTx(ctx, func(q repository.Querier) error {
		_, err := q.AddAccountBalance(ctx, account.ID, decimal.RequireFromString("12.345"))
		return err
	})
	require.NoError(t, err)

	got, err := store.Queries().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "12.35", got.CurrentBalance.StringFixed(2))
}

func TestUniqueConstraints(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	q := store.Queries()
	account := seedAccount(t, q)

	_, err := q.CreateIdentity(ctx, models.Identity{ID: uuid.New(), FiscalCode: "RSSMRA80A01H501U"})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = q.CreatePlatform(ctx, models.Platform{ID: uuid.New(), Name: "BET365", Type: domain.PlatformOther})
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = q.CreateAccount(ctx, models.Account{ID: uuid.New(), IdentityID: account.IdentityID, PlatformID: account.PlatformID})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestDeleteAccountRestrictedByOperations(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	q := store.Queries()
	account := seedAccount(t, q)

	_, err := q.CreateOperation(ctx, models.FinancialOperation{
		ID:            uuid.New(),
		AccountID:     account.ID,
		Kind:          domain.OperationDeposit,
		OperationDate: time.Now(),
		Amount:        decimal.NewFromInt(10),
		Deposit:       &models.DepositDetails{PaymentMethod: "card"},
	})
	require.NoError(t, err)

	_, err = q.DeleteAccount(ctx, account.ID)
	require.Error(t, err)

	n, err := q.DeleteOperationsByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = q.DeleteAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestSettleBetOnlyOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	q := store.Queries()
	account := seedAccount(t, q)

	bet, err := q.CreateOperation(ctx, models.FinancialOperation{
		ID:            uuid.New(),
		AccountID:     account.ID,
		Kind:          domain.OperationBet,
		OperationDate: time.Now(),
		Amount:        decimal.NewFromInt(10),
		Bet:           &models.BetDetails{EventName: "Derby", Odds: decimal.RequireFromString("2.5")},
	})
	require.NoError(t, err)

	pending, err := q.ListOperations(ctx, repository.OperationFilter{PendingBets: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	n, err := q.SettleBet(ctx, bet.ID, domain.BetWin)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = q.SettleBet(ctx, bet.ID, domain.BetLoss)
	require.NoError(t, err)
	require.Zero(t, n)

	got, err := q.GetOperation(ctx, bet.ID)
	require.NoError(t, err)
	require.Equal(t, domain.BetWin, *got.Bet.Outcome)

	pending, err = q.ListOperations(ctx, repository.OperationFilter{PendingBets: true})
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestExpirePromotions(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	q := store.Queries()
	account := seedAccount(t, q)

	today := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	overdue, err := q.CreatePromotion(ctx, models.Promotion{ID: uuid.New(), AccountID: account.ID, Status: domain.PromotionActive, DeadlineDate: &yesterday})
	require.NoError(t, err)
	_, err = q.CreatePromotion(ctx, models.Promotion{ID: uuid.New(), AccountID: account.ID, Status: domain.PromotionActive, DeadlineDate: &today})
	require.NoError(t, err)
	_, err = q.CreatePromotion(ctx, models.Promotion{ID: uuid.New(), AccountID: account.ID, Status: domain.PromotionPending, DeadlineDate: &yesterday})
	require.NoError(t, err)

	expired, err := q.ExpirePromotions(ctx, today)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, overdue.ID, expired[0].ID)
	require.Equal(t, domain.PromotionExpired, expired[0].Status)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	q := NewStore().Queries()
	_, err := q.GetIdentity(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "identity", nf.Entity)
}
