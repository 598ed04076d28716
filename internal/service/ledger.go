package service

import (
	"context"
	"fmt"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/gateway"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/observability"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService records financial operations and applies their balance effects.
// Each mutation locks the account row, writes the operation, applies a balance
// delta and appends an audit row in a single transaction.
type LedgerService struct {
	store     QueryStore
	audit     *AuditService
	publisher gateway.Publisher
	now       func() time.Time
}

func NewLedgerService(store QueryStore, publisher gateway.Publisher) *LedgerService {
	if publisher == nil {
		publisher = gateway.NoopPublisher{}
	}
	return &LedgerService{
		store:     store,
		audit:     NewAuditService(),
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock overrides the clock used for default operation dates.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

type DepositCommand struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod string `validate:"max=100"`
	Notes         string `validate:"max=2000"`
	OperationDate *time.Time
	ActorID       *uuid.UUID
}

type WithdrawalCommand struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	Notes         string `validate:"max=2000"`
	OperationDate *time.Time
	ActorID       *uuid.UUID
}

type BetCommand struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	EventName     string `validate:"required,max=255"`
	Odds          decimal.Decimal
	Notes         string `validate:"max=2000"`
	OperationDate *time.Time
	ActorID       *uuid.UUID
}

type WithdrawalStatusCommand struct {
	OperationID uuid.UUID
	Status      *domain.WithdrawalStatus
	ArrivalDate *time.Time
	ActorID     *uuid.UUID
}

type SettleBetCommand struct {
	OperationID uuid.UUID
	Outcome     domain.BetOutcome
	ActorID     *uuid.UUID
}

// RecordDeposit credits the account with the deposited amount.
func (s *LedgerService) RecordDeposit(ctx context.Context, cmd DepositCommand) (*models.FinancialOperation, error) {
	amount, err := s.checkAmount(cmd.AccountID, cmd.Amount, cmd)
	if err != nil {
		return nil, err
	}
	op := s.newOperation(cmd.AccountID, domain.OperationDeposit, amount, cmd.Notes, cmd.OperationDate)
	op.Deposit = &models.DepositDetails{PaymentMethod: cmd.PaymentMethod}
	return s.record(ctx, op, amount, cmd.ActorID)
}

// RecordWithdrawal debits the account at request time. Later status changes
// never credit the amount back.
func (s *LedgerService) RecordWithdrawal(ctx context.Context, cmd WithdrawalCommand) (*models.FinancialOperation, error) {
	amount, err := s.checkAmount(cmd.AccountID, cmd.Amount, cmd)
	if err != nil {
		return nil, err
	}
	op := s.newOperation(cmd.AccountID, domain.OperationWithdrawal, amount, cmd.Notes, cmd.OperationDate)
	op.Withdrawal = &models.WithdrawalDetails{Status: domain.WithdrawalRequested}
	return s.record(ctx, op, amount.Neg(), cmd.ActorID)
}

// RecordBet debits the stake and leaves the bet pending.
func (s *LedgerService) RecordBet(ctx context.Context, cmd BetCommand) (*models.FinancialOperation, error) {
	amount, err := s.checkAmount(cmd.AccountID, cmd.Amount, cmd)
	if err != nil {
		return nil, err
	}
	odds := domain.RoundOdds(cmd.Odds)
	if odds.LessThan(domain.MinOdds) {
		return nil, domain.NewValidationError("odds", "must be at least "+domain.MinOdds.String())
	}
	op := s.newOperation(cmd.AccountID, domain.OperationBet, amount, cmd.Notes, cmd.OperationDate)
	op.Bet = &models.BetDetails{EventName: cmd.EventName, Odds: odds}
	return s.record(ctx, op, amount.Neg(), cmd.ActorID)
}

func (s *LedgerService) checkAmount(accountID uuid.UUID, amount decimal.Decimal, cmd any) (decimal.Decimal, error) {
	if accountID == uuid.Nil {
		return decimal.Zero, domain.NewValidationError("account_id", "is required")
	}
	if err := validateStruct(cmd); err != nil {
		return decimal.Zero, err
	}
	amount = domain.RoundMoney(amount)
	if err := requirePositive("amount", amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (s *LedgerService) newOperation(accountID uuid.UUID, kind domain.OperationKind, amount decimal.Decimal, notes string, date *time.Time) models.FinancialOperation {
	opDate := s.now()
	if date != nil {
		opDate = *date
	}
	return models.FinancialOperation{
		ID:            uuid.New(),
		AccountID:     accountID,
		Kind:          kind,
		OperationDate: opDate.UTC(),
		Amount:        amount,
		Notes:         notes,
	}
}

func (s *LedgerService) record(ctx context.Context, op models.FinancialOperation, delta decimal.Decimal, actorID *uuid.UUID) (*models.FinancialOperation, error) {
	var (
		created models.FinancialOperation
		balance decimal.Decimal
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetAccountForUpdate(ctx, op.AccountID); err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		var err error
		created, err = qtx.CreateOperation(ctx, op)
		if err != nil {
			return fmt.Errorf("create %s: %w", op.Kind, err)
		}

		balance, err = qtx.AddAccountBalance(ctx, op.AccountID, delta)
		if err != nil {
			return fmt.Errorf("apply balance delta: %w", err)
		}

		return s.audit.Write(ctx, qtx, "operation", created.ID, actorID, "recorded", "", string(created.Kind), map[string]any{
			"account_id": op.AccountID,
			"amount":     created.Amount,
			"delta":      delta,
			"balance":    balance,
		})
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementLedgerOperation(string(created.Kind))
	publish(ctx, s.publisher, gateway.EventOperationRecorded, created.ID, created)
	zap.L().Info("operation recorded",
		zap.String("operation_id", created.ID.String()),
		zap.String("account_id", created.AccountID.String()),
		zap.String("kind", string(created.Kind)),
		zap.String("amount", created.Amount.StringFixed(domain.MoneyScale)),
		zap.String("balance", balance.StringFixed(domain.MoneyScale)),
	)
	return &created, nil
}

// UpdateWithdrawalStatus changes a withdrawal's lifecycle fields without
// touching the balance. Completing without an explicit arrival date stamps
// the current time; an explicit arrival date always wins.
func (s *LedgerService) UpdateWithdrawalStatus(ctx context.Context, cmd WithdrawalStatusCommand) (*models.FinancialOperation, error) {
	if cmd.Status == nil && cmd.ArrivalDate == nil {
		return nil, domain.NewValidationError("", "status or arrival_date is required")
	}
	var status *domain.WithdrawalStatus
	if cmd.Status != nil {
		parsed, err := domain.ParseWithdrawalStatus(string(*cmd.Status))
		if err != nil {
			return nil, err
		}
		status = &parsed
	}

	var (
		updated  models.FinancialOperation
		previous domain.WithdrawalStatus
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		op, err := qtx.GetOperationForUpdate(ctx, cmd.OperationID)
		if err != nil {
			return withEntity(err, "withdrawal", cmd.OperationID)
		}
		if op.Kind != domain.OperationWithdrawal || op.Withdrawal == nil {
			return domain.NewNotFoundError("withdrawal", cmd.OperationID)
		}

		previous = op.Withdrawal.Status
		next := models.WithdrawalDetails{Status: op.Withdrawal.Status, ArrivalDate: op.Withdrawal.ArrivalDate}
		if status != nil {
			next.Status = *status
			if next.Status == domain.WithdrawalCompleted && cmd.ArrivalDate == nil {
				stamp := s.now().UTC()
				next.ArrivalDate = &stamp
			}
		}
		if cmd.ArrivalDate != nil {
			arrival := cmd.ArrivalDate.UTC()
			next.ArrivalDate = &arrival
		}

		rows, err := qtx.UpdateWithdrawal(ctx, repository.UpdateWithdrawalParams{
			ID:          op.ID,
			Status:      next.Status,
			ArrivalDate: next.ArrivalDate,
		})
		if err != nil {
			return fmt.Errorf("update withdrawal: %w", err)
		}
		if err := requireExactlyOne(rows, "update withdrawal"); err != nil {
			return err
		}

		op.Withdrawal = &next
		updated = op
		return s.audit.Write(ctx, qtx, "operation", op.ID, cmd.ActorID, "withdrawal_status", string(previous), string(next.Status), map[string]any{
			"arrival_date": next.ArrivalDate,
		})
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, gateway.EventWithdrawalStatusChanged, updated.ID, map[string]any{
		"account_id":   updated.AccountID,
		"from":         previous,
		"to":           updated.Withdrawal.Status,
		"arrival_date": updated.Withdrawal.ArrivalDate,
	})
	zap.L().Info("withdrawal status updated",
		zap.String("operation_id", updated.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(updated.Withdrawal.Status)),
	)
	return &updated, nil
}

// SettleBet resolves a pending bet and credits the payout: stake times odds
// on WIN, the stake on VOID, nothing on LOSS. Settling a bet that already has
// an outcome returns the stored record unchanged.
func (s *LedgerService) SettleBet(ctx context.Context, cmd SettleBetCommand) (*models.FinancialOperation, error) {
	outcome, err := domain.ParseBetOutcome(string(cmd.Outcome))
	if err != nil {
		return nil, err
	}

	var (
		settled models.FinancialOperation
		applied bool
		payout  decimal.Decimal
		balance decimal.Decimal
	)
	err = s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		op, err := qtx.GetOperationForUpdate(ctx, cmd.OperationID)
		if err != nil {
			return withEntity(err, "bet", cmd.OperationID)
		}
		if op.Kind != domain.OperationBet || op.Bet == nil {
			return domain.NewNotFoundError("bet", cmd.OperationID)
		}
		settled = op
		if !op.IsPendingBet() {
			return nil
		}

		if _, err := qtx.GetAccountForUpdate(ctx, op.AccountID); err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		rows, err := qtx.SettleBet(ctx, op.ID, outcome)
		if err != nil {
			return fmt.Errorf("settle bet: %w", err)
		}
		if rows == 0 {
			return nil
		}

		payout = domain.BetPayout(op.Amount, op.Bet.Odds, outcome)
		balance, err = qtx.AddAccountBalance(ctx, op.AccountID, payout)
		if err != nil {
			return fmt.Errorf("apply payout: %w", err)
		}

		stored := outcome
		bet := *op.Bet
		bet.Outcome = &stored
		settled.Bet = &bet
		applied = true

		return s.audit.Write(ctx, qtx, "operation", op.ID, cmd.ActorID, "settled", "PENDING", string(outcome), map[string]any{
			"account_id": op.AccountID,
			"payout":     payout,
			"balance":    balance,
		})
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		zap.L().Debug("bet already settled", zap.String("operation_id", settled.ID.String()))
		return &settled, nil
	}

	observability.IncrementBetSettlement(string(outcome))
	publish(ctx, s.publisher, gateway.EventBetSettled, settled.ID, map[string]any{
		"account_id": settled.AccountID,
		"outcome":    outcome,
		"payout":     payout,
	})
	zap.L().Info("bet settled",
		zap.String("operation_id", settled.ID.String()),
		zap.String("outcome", string(outcome)),
		zap.String("payout", payout.StringFixed(domain.MoneyScale)),
		zap.String("balance", balance.StringFixed(domain.MoneyScale)),
	)
	return &settled, nil
}

// DeleteOperation removes the record only. Its balance effect stays applied.
func (s *LedgerService) DeleteOperation(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	var deleted models.FinancialOperation
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		op, err := qtx.GetOperationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		rows, err := qtx.DeleteOperation(ctx, id)
		if err != nil {
			return fmt.Errorf("delete operation: %w", err)
		}
		if err := requireExactlyOne(rows, "delete operation"); err != nil {
			return err
		}
		deleted = op
		return s.audit.Write(ctx, qtx, "operation", id, actorID, "deleted", string(op.Kind), "", map[string]any{
			"account_id": op.AccountID,
			"amount":     op.Amount,
		})
	})
	if err != nil {
		return err
	}

	publish(ctx, s.publisher, gateway.EventOperationDeleted, id, map[string]any{
		"account_id": deleted.AccountID,
		"kind":       deleted.Kind,
		"amount":     deleted.Amount,
	})
	zap.L().Info("operation deleted", zap.String("operation_id", id.String()), zap.String("kind", string(deleted.Kind)))
	return nil
}

// GetOperation returns a single ledger record.
func (s *LedgerService) GetOperation(ctx context.Context, id uuid.UUID) (*models.FinancialOperation, error) {
	op, err := s.store.Queries().GetOperation(ctx, id)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// ListOperations returns ledger records, newest first.
func (s *LedgerService) ListOperations(ctx context.Context, filter repository.OperationFilter) ([]models.FinancialOperation, error) {
	return s.store.Queries().ListOperations(ctx, filter)
}
