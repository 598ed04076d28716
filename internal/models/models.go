package models

import (
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is a back-office staff member.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Role         domain.Role `json:"role"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Identity is a person whose betting activity is tracked.
type Identity struct {
	ID                 uuid.UUID  `json:"id"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	FiscalCode         string     `json:"fiscal_code"`
	DocumentExpiryDate *time.Time `json:"document_expiry_date,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	ManagerID          *uuid.UUID `json:"manager_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (i Identity) FullName() string {
	return i.FirstName + " " + i.LastName
}

type Platform struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	WebsiteURL string              `json:"website_url,omitempty"`
	Type       domain.PlatformType `json:"type"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Account is a login on a platform, owned by exactly one identity.
// Password holds the platform credential and is never serialized.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	IdentityID     uuid.UUID       `json:"identity_id"`
	PlatformID     uuid.UUID       `json:"platform_id"`
	Username       string          `json:"username"`
	Password       string          `json:"-"`
	Email          string          `json:"email,omitempty"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Notes          string          `json:"notes,omitempty"`
	IsActive       bool            `json:"is_active"`
	IsLimited      bool            `json:"is_limited"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type DepositDetails struct {
	PaymentMethod string `json:"payment_method"`
}

type WithdrawalDetails struct {
	Status      domain.WithdrawalStatus `json:"status"`
	ArrivalDate *time.Time              `json:"arrival_date,omitempty"`
}

type BetDetails struct {
	EventName string             `json:"event_name"`
	Odds      decimal.Decimal    `json:"odds"`
	Outcome   *domain.BetOutcome `json:"outcome"`
}

// FinancialOperation is a ledger record. Kind selects which of the detail
// payloads is populated.
type FinancialOperation struct {
	ID            uuid.UUID            `json:"id"`
	AccountID     uuid.UUID            `json:"account_id"`
	Kind          domain.OperationKind `json:"kind"`
	OperationDate time.Time            `json:"operation_date"`
	Amount        decimal.Decimal      `json:"amount"`
	Notes         string               `json:"notes,omitempty"`
	Deposit       *DepositDetails      `json:"deposit,omitempty"`
	Withdrawal    *WithdrawalDetails   `json:"withdrawal,omitempty"`
	Bet           *BetDetails          `json:"bet,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// IsPendingBet reports whether the operation is a bet without an outcome.
func (o FinancialOperation) IsPendingBet() bool {
	return o.Kind == domain.OperationBet && o.Bet != nil && o.Bet.Outcome == nil
}

type Promotion struct {
	ID             uuid.UUID              `json:"id"`
	AccountID      uuid.UUID              `json:"account_id"`
	Description    string                 `json:"description"`
	BonusAmount    decimal.Decimal        `json:"bonus_amount"`
	RolloverTarget decimal.NullDecimal    `json:"rollover_target"`
	RolloverDone   decimal.Decimal        `json:"rollover_done"`
	DeadlineDate   *time.Time             `json:"deadline_date,omitempty"`
	Status         domain.PromotionStatus `json:"status"`
	Notes          string                 `json:"notes,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func (p Promotion) RolloverPercentage() decimal.Decimal {
	return domain.RolloverPercentage(p.RolloverDone, p.RolloverTarget)
}

// IdentityTotals are the raw ledger sums behind an identity's profit.
type IdentityTotals struct {
	IdentityID       uuid.UUID
	FirstName        string
	LastName         string
	TotalDeposits    decimal.Decimal
	TotalWithdrawals decimal.Decimal
	TotalBalance     decimal.Decimal
	AccountsCount    int64
}

// DashboardTotals are the system-wide counts and sums read in one pass.
type DashboardTotals struct {
	Identities         int64
	Accounts           int64
	ActiveAccounts     int64
	LimitedAccounts    int64
	Platforms          int64
	TotalDeposits      decimal.Decimal
	TotalWithdrawals   decimal.Decimal
	TotalBalance       decimal.Decimal
	ExpiringDocuments  int64
	ExpiringPromotions int64
	PromotionsByStatus map[domain.PromotionStatus]int64
}

type AuditEntry struct {
	ID         int64      `json:"id"`
	EntityType string     `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Action     string     `json:"action"`
	PrevState  *string    `json:"prev_state,omitempty"`
	NextState  *string    `json:"next_state,omitempty"`
	Metadata   []byte     `json:"metadata,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
