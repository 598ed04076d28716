package domain

import (
	"fmt"
	"strings"
)

// OperationKind discriminates the financial operation variants.
type OperationKind string

const (
	OperationDeposit    OperationKind = "DEPOSIT"
	OperationWithdrawal OperationKind = "WITHDRAWAL"
	OperationBet        OperationKind = "BET"
)

// WithdrawalStatus is the lifecycle state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalRequested  WithdrawalStatus = "REQUESTED"
	WithdrawalProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalCompleted  WithdrawalStatus = "COMPLETED"
	WithdrawalRejected   WithdrawalStatus = "REJECTED"
	WithdrawalCancelled  WithdrawalStatus = "CANCELLED"
)

// BetOutcome is the terminal result of a bet. A pending bet has no outcome.
type BetOutcome string

const (
	BetWin  BetOutcome = "WIN"
	BetLoss BetOutcome = "LOSS"
	BetVoid BetOutcome = "VOID"
)

// PromotionStatus tracks a promotion through PENDING -> ACTIVE -> {COMPLETED, EXPIRED}.
type PromotionStatus string

const (
	PromotionPending   PromotionStatus = "PENDING"
	PromotionActive    PromotionStatus = "ACTIVE"
	PromotionCompleted PromotionStatus = "COMPLETED"
	PromotionExpired   PromotionStatus = "EXPIRED"
)

// PlatformType classifies betting platforms.
type PlatformType string

const (
	PlatformBookmaker PlatformType = "BOOKMAKER"
	PlatformExchange  PlatformType = "EXCHANGE"
	PlatformCasino    PlatformType = "CASINO"
	PlatformBroker    PlatformType = "BETTING_EXCHANGE_BROKER"
	PlatformOther     PlatformType = "OTHER"
)

// Role is the back-office role carried in access tokens.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
)

var (
	operationKinds     = set(OperationDeposit, OperationWithdrawal, OperationBet)
	withdrawalStatuses = set(WithdrawalRequested, WithdrawalProcessing, WithdrawalCompleted, WithdrawalRejected, WithdrawalCancelled)
	betOutcomes        = set(BetWin, BetLoss, BetVoid)
	promotionStatuses  = set(PromotionPending, PromotionActive, PromotionCompleted, PromotionExpired)
	platformTypes      = set(PlatformBookmaker, PlatformExchange, PlatformCasino, PlatformBroker, PlatformOther)
	roles              = set(RoleAdmin, RoleManager)
)

func set[T ~string](values ...T) map[T]struct{} {
	out := make(map[T]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func parse[T ~string](field, raw string, known map[T]struct{}) (T, error) {
	v := T(normalize(raw))
	if _, ok := known[v]; !ok {
		return "", NewValidationError(field, fmt.Sprintf("unknown value %q", raw))
	}
	return v, nil
}

func ParseOperationKind(raw string) (OperationKind, error) {
	return parse("kind", raw, operationKinds)
}

func ParseWithdrawalStatus(raw string) (WithdrawalStatus, error) {
	return parse("status", raw, withdrawalStatuses)
}

func ParseBetOutcome(raw string) (BetOutcome, error) {
	return parse("outcome", raw, betOutcomes)
}

func ParsePromotionStatus(raw string) (PromotionStatus, error) {
	return parse("status", raw, promotionStatuses)
}

func ParsePlatformType(raw string) (PlatformType, error) {
	return parse("type", raw, platformTypes)
}

func ParseRole(raw string) (Role, error) {
	return parse("role", raw, roles)
}
