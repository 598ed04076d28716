package repository

import (
	"context"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Querier is the data access contract shared by the Postgres queries and the
// in-memory store. Lookups by id return a *domain.NotFoundError when the row is
// missing; delete and update-by-id calls return the affected row count.
type Querier interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	CreateIdentity(ctx context.Context, i models.Identity) (models.Identity, error)
	GetIdentity(ctx context.Context, id uuid.UUID) (models.Identity, error)
	GetIdentityByFiscalCode(ctx context.Context, fiscalCode string) (models.Identity, error)
	ListIdentities(ctx context.Context, filter IdentityFilter) ([]models.Identity, error)
	UpdateIdentity(ctx context.Context, i models.Identity) (models.Identity, error)
	DeleteIdentity(ctx context.Context, id uuid.UUID) (int64, error)

	CreatePlatform(ctx context.Context, p models.Platform) (models.Platform, error)
	GetPlatform(ctx context.Context, id uuid.UUID) (models.Platform, error)
	GetPlatformByName(ctx context.Context, name string) (models.Platform, error)
	ListPlatforms(ctx context.Context, filter PlatformFilter) ([]models.Platform, error)
	UpdatePlatform(ctx context.Context, p models.Platform) (models.Platform, error)
	DeletePlatform(ctx context.Context, id uuid.UUID) (int64, error)

	CreateAccount(ctx context.Context, a models.Account) (models.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error)
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (models.Account, error)
	GetAccountByIdentityAndPlatform(ctx context.Context, identityID, platformID uuid.UUID) (models.Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]models.Account, error)
	UpdateAccount(ctx context.Context, a models.Account) (models.Account, error)
	AddAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	SetAccountBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (int64, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) (int64, error)

	CreateOperation(ctx context.Context, op models.FinancialOperation) (models.FinancialOperation, error)
	GetOperation(ctx context.Context, id uuid.UUID) (models.FinancialOperation, error)
	GetOperationForUpdate(ctx context.Context, id uuid.UUID) (models.FinancialOperation, error)
	ListOperations(ctx context.Context, filter OperationFilter) ([]models.FinancialOperation, error)
	UpdateWithdrawal(ctx context.Context, arg UpdateWithdrawalParams) (int64, error)
	SettleBet(ctx context.Context, id uuid.UUID, outcome domain.BetOutcome) (int64, error)
	DeleteOperation(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteOperationsByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	CreatePromotion(ctx context.Context, p models.Promotion) (models.Promotion, error)
	GetPromotion(ctx context.Context, id uuid.UUID) (models.Promotion, error)
	GetPromotionForUpdate(ctx context.Context, id uuid.UUID) (models.Promotion, error)
	ListPromotions(ctx context.Context, filter PromotionFilter) ([]models.Promotion, error)
	UpdatePromotion(ctx context.Context, p models.Promotion) (models.Promotion, error)
	ExpirePromotions(ctx context.Context, before time.Time) ([]models.Promotion, error)
	DeletePromotion(ctx context.Context, id uuid.UUID) (int64, error)
	DeletePromotionsByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	GetIdentityTotals(ctx context.Context, identityID uuid.UUID) (models.IdentityTotals, error)
	ListIdentityTotals(ctx context.Context) ([]models.IdentityTotals, error)
	GetDashboardTotals(ctx context.Context, arg DashboardParams) (models.DashboardTotals, error)

	InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (int64, error)
}

type IdentityFilter struct {
	ManagerID *uuid.UUID
	// Document expiry window, both bounds inclusive.
	DocumentExpiryFrom *time.Time
	DocumentExpiryTo   *time.Time
}

type PlatformFilter struct {
	Type *domain.PlatformType
	Name string
}

type AccountFilter struct {
	IdentityID *uuid.UUID
	PlatformID *uuid.UUID
}

// OperationFilter selects ledger rows. From and To bound operation_date inclusively.
type OperationFilter struct {
	AccountID        *uuid.UUID
	IdentityID       *uuid.UUID
	Kind             *domain.OperationKind
	WithdrawalStatus *domain.WithdrawalStatus
	PendingBets      bool
	From             *time.Time
	To               *time.Time
}

// PromotionFilter selects promotions. DeadlineFrom/DeadlineTo bound deadline_date
// inclusively; promotions without a deadline never match a deadline bound.
type PromotionFilter struct {
	AccountID    *uuid.UUID
	Status       *domain.PromotionStatus
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
}

type UpdateWithdrawalParams struct {
	ID          uuid.UUID
	Status      domain.WithdrawalStatus
	ArrivalDate *time.Time
}

// DashboardParams carries the calendar windows for the expiry counters.
type DashboardParams struct {
	Today   time.Time
	Horizon time.Time
}

type InsertAuditLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
}
