package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const operationColumns = `o.id, o.account_id, o.kind, o.operation_date, o.amount, o.notes,
	o.payment_method, o.withdrawal_status, o.arrival_date, o.event_name, o.odds, o.outcome, o.created_at`

func scanOperation(row pgx.Row) (models.FinancialOperation, error) {
	var (
		op            models.FinancialOperation
		paymentMethod *string
		status        *string
		arrivalDate   *time.Time
		eventName     *string
		odds          decimal.NullDecimal
		outcome       *string
	)
	err := row.Scan(&op.ID, &op.AccountID, &op.Kind, &op.OperationDate, &op.Amount, &op.Notes,
		&paymentMethod, &status, &arrivalDate, &eventName, &odds, &outcome, &op.CreatedAt)
	if err != nil {
		return models.FinancialOperation{}, err
	}

	switch op.Kind {
	case domain.OperationDeposit:
		op.Deposit = &models.DepositDetails{PaymentMethod: deref(paymentMethod)}
	case domain.OperationWithdrawal:
		op.Withdrawal = &models.WithdrawalDetails{
			Status:      domain.WithdrawalStatus(deref(status)),
			ArrivalDate: arrivalDate,
		}
	case domain.OperationBet:
		bet := &models.BetDetails{EventName: deref(eventName), Odds: odds.Decimal}
		if outcome != nil {
			o := domain.BetOutcome(*outcome)
			bet.Outcome = &o
		}
		op.Bet = bet
	}
	return op, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type operationVariantColumns struct {
	paymentMethod *string
	status        *string
	arrivalDate   *time.Time
	eventName     *string
	odds          decimal.NullDecimal
	outcome       *string
}

func variantColumns(op models.FinancialOperation) operationVariantColumns {
	var c operationVariantColumns
	switch {
	case op.Deposit != nil:
		c.paymentMethod = &op.Deposit.PaymentMethod
	case op.Withdrawal != nil:
		status := string(op.Withdrawal.Status)
		c.status = &status
		c.arrivalDate = op.Withdrawal.ArrivalDate
	case op.Bet != nil:
		c.eventName = &op.Bet.EventName
		c.odds = decimal.NewNullDecimal(op.Bet.Odds)
		if op.Bet.Outcome != nil {
			outcome := string(*op.Bet.Outcome)
			c.outcome = &outcome
		}
	}
	return c
}

const createOperation = `
INSERT INTO financial_operations AS o (id, account_id, kind, operation_date, amount, notes,
	payment_method, withdrawal_status, arrival_date, event_name, odds, outcome, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
RETURNING ` + operationColumns

func (q *Queries) CreateOperation(ctx context.Context, op models.FinancialOperation) (models.FinancialOperation, error) {
	c := variantColumns(op)
	row := q.db.QueryRow(ctx, createOperation, op.ID, op.AccountID, op.Kind, op.OperationDate, op.Amount, op.Notes,
		c.paymentMethod, c.status, c.arrivalDate, c.eventName, c.odds, c.outcome)
	created, err := scanOperation(row)
	if err != nil {
		return models.FinancialOperation{}, fmt.Errorf("create operation: %w", err)
	}
	return created, nil
}

const getOperation = `SELECT ` + operationColumns + ` FROM financial_operations o WHERE o.id = $1`

func (q *Queries) GetOperation(ctx context.Context, id uuid.UUID) (models.FinancialOperation, error) {
	op, err := scanOperation(q.db.QueryRow(ctx, getOperation, id))
	return op, notFound(err, "operation", id)
}

const getOperationForUpdate = getOperation + ` FOR UPDATE`

func (q *Queries) GetOperationForUpdate(ctx context.Context, id uuid.UUID) (models.FinancialOperation, error) {
	op, err := scanOperation(q.db.QueryRow(ctx, getOperationForUpdate, id))
	return op, notFound(err, "operation", id)
}

func (q *Queries) ListOperations(ctx context.Context, filter OperationFilter) ([]models.FinancialOperation, error) {
	var where whereBuilder
	from := ` FROM financial_operations o`
	if filter.IdentityID != nil {
		from += ` JOIN accounts a ON a.id = o.account_id`
		where.add("a.identity_id = ?", *filter.IdentityID)
	}
	if filter.AccountID != nil {
		where.add("o.account_id = ?", *filter.AccountID)
	}
	if filter.Kind != nil {
		where.add("o.kind = ?", *filter.Kind)
	}
	if filter.WithdrawalStatus != nil {
		where.add("o.kind = 'WITHDRAWAL' AND o.withdrawal_status = ?", *filter.WithdrawalStatus)
	}
	if filter.PendingBets {
		where.addRaw("o.kind = 'BET' AND o.outcome IS NULL")
	}
	if filter.From != nil {
		where.add("o.operation_date >= ?", *filter.From)
	}
	if filter.To != nil {
		where.add("o.operation_date <= ?", *filter.To)
	}
	sql := `SELECT ` + operationColumns + from + where.String() + ` ORDER BY o.operation_date DESC, o.created_at DESC`
	rows, err := q.db.Query(ctx, sql, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	return collect(rows, scanOperation)
}

const updateWithdrawal = `
UPDATE financial_operations SET withdrawal_status = $2, arrival_date = $3
WHERE id = $1 AND kind = 'WITHDRAWAL'`

func (q *Queries) UpdateWithdrawal(ctx context.Context, arg UpdateWithdrawalParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateWithdrawal, arg.ID, arg.Status, arg.ArrivalDate)
	if err != nil {
		return 0, fmt.Errorf("update withdrawal: %w", err)
	}
	return tag.RowsAffected(), nil
}

const settleBet = `
UPDATE financial_operations SET outcome = $2
WHERE id = $1 AND kind = 'BET' AND outcome IS NULL`

// SettleBet sets the outcome of a pending bet. It affects no rows when the bet
// already has an outcome.
func (q *Queries) SettleBet(ctx context.Context, id uuid.UUID, outcome domain.BetOutcome) (int64, error) {
	tag, err := q.db.Exec(ctx, settleBet, id, outcome)
	if err != nil {
		return 0, fmt.Errorf("settle bet: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteOperation = `DELETE FROM financial_operations WHERE id = $1`

func (q *Queries) DeleteOperation(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOperation, id)
	if err != nil {
		return 0, fmt.Errorf("delete operation: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteOperationsByAccount = `DELETE FROM financial_operations WHERE account_id = $1`

func (q *Queries) DeleteOperationsByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOperationsByAccount, accountID)
	if err != nil {
		return 0, fmt.Errorf("delete account operations: %w", err)
	}
	return tag.RowsAffected(), nil
}
