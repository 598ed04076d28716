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

// PromotionService tracks bonus promotions and their rollover progress.
type PromotionService struct {
	store     QueryStore
	audit     *AuditService
	publisher gateway.Publisher
}

func NewPromotionService(store QueryStore, publisher gateway.Publisher) *PromotionService {
	if publisher == nil {
		publisher = gateway.NoopPublisher{}
	}
	return &PromotionService{store: store, audit: NewAuditService(), publisher: publisher}
}

type CreatePromotionCommand struct {
	AccountID      uuid.UUID
	Description    string `validate:"required,max=500"`
	BonusAmount    decimal.Decimal
	RolloverTarget decimal.NullDecimal
	DeadlineDate   *time.Time
	Status         *domain.PromotionStatus
	Notes          string `validate:"max=2000"`
	ActorID        *uuid.UUID
}

// PromotionPatch carries the fields to change; nil means unchanged.
type PromotionPatch struct {
	Description    *string `validate:"omitempty,min=1,max=500"`
	BonusAmount    *decimal.Decimal
	RolloverTarget *decimal.Decimal
	RolloverDone   *decimal.Decimal
	DeadlineDate   *time.Time
	Status         *domain.PromotionStatus
	Notes          *string `validate:"omitempty,max=2000"`
}

func (s *PromotionService) Create(ctx context.Context, cmd CreatePromotionCommand) (*models.Promotion, error) {
	if cmd.AccountID == uuid.Nil {
		return nil, domain.NewValidationError("account_id", "is required")
	}
	if err := validateStruct(cmd); err != nil {
		return nil, err
	}
	if err := requireNonNegative("bonus_amount", cmd.BonusAmount); err != nil {
		return nil, err
	}
	if cmd.RolloverTarget.Valid {
		if err := requireNonNegative("rollover_target", cmd.RolloverTarget.Decimal); err != nil {
			return nil, err
		}
	}

	status := domain.PromotionPending
	if cmd.Status != nil {
		parsed, err := domain.ParsePromotionStatus(string(*cmd.Status))
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	p := models.Promotion{
		ID:             uuid.New(),
		AccountID:      cmd.AccountID,
		Description:    cmd.Description,
		BonusAmount:    domain.RoundMoney(cmd.BonusAmount),
		RolloverTarget: roundNullMoney(cmd.RolloverTarget),
		RolloverDone:   decimal.Zero,
		DeadlineDate:   dateOnly(cmd.DeadlineDate),
		Status:         status,
		Notes:          cmd.Notes,
	}

	var created models.Promotion
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetAccount(ctx, cmd.AccountID); err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		var err error
		created, err = qtx.CreatePromotion(ctx, p)
		if err != nil {
			return fmt.Errorf("create promotion: %w", err)
		}
		return s.audit.Write(ctx, qtx, "promotion", created.ID, cmd.ActorID, "created", "", string(created.Status), map[string]any{
			"account_id":      created.AccountID,
			"bonus_amount":    created.BonusAmount,
			"rollover_target": created.RolloverTarget,
		})
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementPromotionTransition(string(created.Status))
	publish(ctx, s.publisher, gateway.EventPromotionCreated, created.ID, created)
	zap.L().Info("promotion created", zap.String("promotion_id", created.ID.String()), zap.String("account_id", created.AccountID.String()))
	return &created, nil
}

// ApplyRollover adds increment to the rollover done and completes the
// promotion when the target is reached. Expired promotions are not guarded.
func (s *PromotionService) ApplyRollover(ctx context.Context, id uuid.UUID, increment decimal.Decimal, actorID *uuid.UUID) (*models.Promotion, error) {
	increment = domain.RoundMoney(increment)
	if err := requireNonNegative("amount", increment); err != nil {
		return nil, err
	}

	var (
		updated   models.Promotion
		previous  domain.PromotionStatus
		completed bool
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		p, err := qtx.GetPromotionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = p.Status
		p.RolloverDone = p.RolloverDone.Add(increment)
		completed = checkRolloverCompletion(&p)

		updated, err = qtx.UpdatePromotion(ctx, p)
		if err != nil {
			return fmt.Errorf("update promotion: %w", err)
		}
		return s.audit.Write(ctx, qtx, "promotion", id, actorID, "rollover_applied", string(previous), string(updated.Status), map[string]any{
			"increment":     increment,
			"rollover_done": updated.RolloverDone,
		})
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, gateway.EventPromotionRollover, id, map[string]any{
		"increment":           increment,
		"rollover_done":       updated.RolloverDone,
		"rollover_percentage": updated.RolloverPercentage(),
	})
	if completed {
		s.completed(ctx, updated)
	}
	zap.L().Info("rollover applied",
		zap.String("promotion_id", id.String()),
		zap.String("rollover_done", updated.RolloverDone.StringFixed(domain.MoneyScale)),
		zap.String("status", string(updated.Status)),
	)
	return &updated, nil
}

// Update applies a partial change. The rollover completion check runs right
// after rollover done is set; an explicit status is applied last and wins.
func (s *PromotionService) Update(ctx context.Context, id uuid.UUID, patch PromotionPatch, actorID *uuid.UUID) (*models.Promotion, error) {
	if err := validateStruct(patch); err != nil {
		return nil, err
	}
	for field, v := range map[string]*decimal.Decimal{
		"bonus_amount":    patch.BonusAmount,
		"rollover_target": patch.RolloverTarget,
		"rollover_done":   patch.RolloverDone,
	} {
		if v != nil {
			if err := requireNonNegative(field, *v); err != nil {
				return nil, err
			}
		}
	}
	if patch.Status != nil {
		status, err := domain.ParsePromotionStatus(string(*patch.Status))
		if err != nil {
			return nil, err
		}
		patch.Status = &status
	}

	var (
		updated   models.Promotion
		previous  domain.PromotionStatus
		completed bool
	)
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		p, err := qtx.GetPromotionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = p.Status

		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.BonusAmount != nil {
			p.BonusAmount = domain.RoundMoney(*patch.BonusAmount)
		}
		if patch.RolloverTarget != nil {
			p.RolloverTarget = decimal.NewNullDecimal(domain.RoundMoney(*patch.RolloverTarget))
		}
		if patch.RolloverDone != nil {
			p.RolloverDone = domain.RoundMoney(*patch.RolloverDone)
			checkRolloverCompletion(&p)
		}
		if patch.DeadlineDate != nil {
			p.DeadlineDate = dateOnly(patch.DeadlineDate)
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}

		updated, err = qtx.UpdatePromotion(ctx, p)
		if err != nil {
			return fmt.Errorf("update promotion: %w", err)
		}

		action := "updated"
		if !isRegularTransition(previous, updated.Status) {
			action = "status_override"
			zap.L().Warn("promotion status overridden",
				zap.String("promotion_id", id.String()),
				zap.String("from", string(previous)),
				zap.String("to", string(updated.Status)),
			)
		}
		completed = previous != domain.PromotionCompleted && updated.Status == domain.PromotionCompleted
		return s.audit.Write(ctx, qtx, "promotion", id, actorID, action, string(previous), string(updated.Status), patch)
	})
	if err != nil {
		return nil, err
	}

	if previous != updated.Status {
		observability.IncrementPromotionTransition(string(updated.Status))
	}
	if completed {
		s.completed(ctx, updated)
	}
	return &updated, nil
}

func (s *PromotionService) completed(ctx context.Context, p models.Promotion) {
	observability.IncrementPromotionTransition(string(domain.PromotionCompleted))
	publish(ctx, s.publisher, gateway.EventPromotionCompleted, p.ID, map[string]any{
		"account_id":    p.AccountID,
		"rollover_done": p.RolloverDone,
		"bonus_amount":  p.BonusAmount,
	})
}

func (s *PromotionService) Get(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	p, err := s.store.Queries().GetPromotion(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PromotionService) List(ctx context.Context, filter repository.PromotionFilter) ([]models.Promotion, error) {
	return s.store.Queries().ListPromotions(ctx, filter)
}

func (s *PromotionService) Delete(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) error {
	return s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		p, err := qtx.GetPromotionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		rows, err := qtx.DeletePromotion(ctx, id)
		if err != nil {
			return fmt.Errorf("delete promotion: %w", err)
		}
		if err := requireExactlyOne(rows, "delete promotion"); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, "promotion", id, actorID, "deleted", string(p.Status), "", nil)
	})
}

// ExpireOverdue flips ACTIVE promotions whose deadline is before today to
// EXPIRED. COMPLETED promotions are never touched.
func (s *PromotionService) ExpireOverdue(ctx context.Context, today time.Time) ([]models.Promotion, error) {
	var expired []models.Promotion
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		var err error
		expired, err = qtx.ExpirePromotions(ctx, calendarDay(today))
		if err != nil {
			return fmt.Errorf("expire promotions: %w", err)
		}
		for _, p := range expired {
			if err := s.audit.Write(ctx, qtx, "promotion", p.ID, nil, "expired", string(domain.PromotionActive), string(domain.PromotionExpired), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range expired {
		observability.IncrementPromotionTransition(string(domain.PromotionExpired))
		publish(ctx, s.publisher, gateway.EventPromotionExpired, p.ID, map[string]any{
			"account_id":    p.AccountID,
			"deadline_date": p.DeadlineDate,
		})
	}
	if len(expired) > 0 {
		zap.L().Info("promotions expired", zap.Int("count", len(expired)))
	}
	return expired, nil
}

func roundNullMoney(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return decimal.NewNullDecimal(domain.RoundMoney(d.Decimal))
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := calendarDay(*t)
	return &out
}
