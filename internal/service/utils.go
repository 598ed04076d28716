package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/gateway"
	"github.com/betflow/betflow-api/internal/observability"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct tag validation and reports the first failing
// field as a domain validation error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		return domain.NewValidationError(fe.Field(), fmt.Sprintf("failed %q rule", fe.Tag()))
	}
	return domain.NewValidationError("", err.Error())
}

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}

// withEntity relabels a not-found lookup with the entity the caller asked for.
func withEntity(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewNotFoundError(entity, id)
	}
	return err
}

func requirePositive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return domain.NewValidationError(field, "must be greater than zero")
	}
	return nil
}

func requireNonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return domain.NewValidationError(field, "cannot be negative")
	}
	return nil
}

// publish emits an event after commit. Failures are logged and counted only.
func publish(ctx context.Context, p gateway.Publisher, eventType string, aggregateID uuid.UUID, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, gateway.NewEvent(eventType, aggregateID, payload)); err != nil {
		observability.IncrementEventPublish("failed")
		zap.L().Warn("event publish failed", zap.Error(err), zap.String("type", eventType), zap.String("aggregate_id", aggregateID.String()))
		return
	}
	observability.IncrementEventPublish("success")
}

// calendarDay keeps the calendar date of t as seen in its own location and
// returns it as UTC midnight, which is how DATE columns round-trip.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
