package service

import (
	"context"
	"fmt"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	documentWindowDays  = 7
	promotionWindowDays = 3
)

// ReminderService holds the bodies of the scheduled jobs. Each method is one
// job run; the worker package decides when they fire.
type ReminderService struct {
	store      QueryStore
	notify     *NotificationService
	promotions *PromotionService
	now        func() time.Time
	loc        *time.Location
	alertDelay time.Duration
}

func NewReminderService(store QueryStore, notify *NotificationService, promotions *PromotionService) *ReminderService {
	return &ReminderService{
		store:      store,
		notify:     notify,
		promotions: promotions,
		now:        time.Now,
		loc:        time.Local,
		alertDelay: 500 * time.Millisecond,
	}
}

// WithAlertDelay sets the pause between consecutive per-entity alerts.
func (s *ReminderService) WithAlertDelay(d time.Duration) *ReminderService {
	if d >= 0 {
		s.alertDelay = d
	}
	return s
}

func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// WithLocation sets the zone whose calendar day the jobs treat as today.
// It should match the zone the jobs are scheduled in.
func (s *ReminderService) WithLocation(loc *time.Location) *ReminderService {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *ReminderService) today() time.Time {
	return calendarDay(s.now().In(s.loc))
}

// DailySummary reports documents expiring within a week and promotions due today.
func (s *ReminderService) DailySummary(ctx context.Context) error {
	today := s.today()
	horizon := today.AddDate(0, 0, documentWindowDays)
	q := s.store.Queries()

	docs, err := q.ListIdentities(ctx, repository.IdentityFilter{DocumentExpiryFrom: &today, DocumentExpiryTo: &horizon})
	if err != nil {
		return fmt.Errorf("list expiring documents: %w", err)
	}
	due, err := q.ListPromotions(ctx, repository.PromotionFilter{DeadlineFrom: &today, DeadlineTo: &today})
	if err != nil {
		return fmt.Errorf("list promotions due today: %w", err)
	}

	sent := s.notify.DailySummary(ctx, len(docs), len(due))
	zap.L().Info("daily summary", zap.Int("expiring_documents", len(docs)), zap.Int("promotions_due", len(due)), zap.Bool("sent", sent))
	return nil
}

// CheckExpiringDocuments sends one alert per identity whose document expires
// within a week.
func (s *ReminderService) CheckExpiringDocuments(ctx context.Context) error {
	today := s.today()
	horizon := today.AddDate(0, 0, documentWindowDays)

	identities, err := s.store.Queries().ListIdentities(ctx, repository.IdentityFilter{DocumentExpiryFrom: &today, DocumentExpiryTo: &horizon})
	if err != nil {
		return fmt.Errorf("list expiring documents: %w", err)
	}
	for i, identity := range identities {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return err
			}
		}
		s.notify.DocumentExpiry(ctx, identity.FullName(), identity.FiscalCode, *identity.DocumentExpiryDate)
	}
	zap.L().Info("document expiry check completed", zap.Int("alerts", len(identities)))
	return nil
}

// CheckExpiringPromotions alerts on ACTIVE promotions due within three days,
// including overdue ones not yet expired.
func (s *ReminderService) CheckExpiringPromotions(ctx context.Context) error {
	horizon := s.today().AddDate(0, 0, promotionWindowDays)
	active := domain.PromotionActive
	q := s.store.Queries()

	promotions, err := q.ListPromotions(ctx, repository.PromotionFilter{Status: &active, DeadlineTo: &horizon})
	if err != nil {
		return fmt.Errorf("list expiring promotions: %w", err)
	}

	platformNames := map[uuid.UUID]string{}
	for i, p := range promotions {
		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return err
			}
		}
		account, err := q.GetAccount(ctx, p.AccountID)
		if err != nil {
			return fmt.Errorf("load account for promotion %s: %w", p.ID, err)
		}
		name, ok := platformNames[account.PlatformID]
		if !ok {
			platform, err := q.GetPlatform(ctx, account.PlatformID)
			if err != nil {
				return fmt.Errorf("load platform for promotion %s: %w", p.ID, err)
			}
			name = platform.Name
			platformNames[account.PlatformID] = name
		}
		s.notify.PromotionDeadline(ctx, p.Description, account.Username, name, *p.DeadlineDate)
	}
	zap.L().Info("promotion expiry check completed", zap.Int("alerts", len(promotions)))
	return nil
}

// ExpirePromotions marks overdue ACTIVE promotions as EXPIRED.
func (s *ReminderService) ExpirePromotions(ctx context.Context) error {
	_, err := s.promotions.ExpireOverdue(ctx, s.today())
	return err
}

func (s *ReminderService) pause(ctx context.Context) error {
	if s.alertDelay <= 0 {
		return nil
	}
	t := time.NewTimer(s.alertDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
