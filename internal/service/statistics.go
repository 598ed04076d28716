package service

import (
	"context"
	"sort"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/betflow/betflow-api/internal/models"
	"github.com/betflow/betflow-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	dashboardHorizonDays = 7
	dashboardTopN        = 5
)

// IdentityProfit is the cash-flow profit of one identity.
type IdentityProfit struct {
	IdentityID          uuid.UUID       `json:"identity_id"`
	IdentityFullName    string          `json:"identity_full_name"`
	TotalDeposits       decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals    decimal.Decimal `json:"total_withdrawals"`
	TotalCurrentBalance decimal.Decimal `json:"total_current_balance"`
	NetProfit           decimal.Decimal `json:"net_profit"`
	TotalAccounts       int64           `json:"total_accounts"`
}

// Dashboard aggregates system-wide counters and the most profitable identities.
type Dashboard struct {
	TotalIdentities         int64                            `json:"total_identities"`
	TotalAccounts           int64                            `json:"total_accounts"`
	ActiveAccounts          int64                            `json:"active_accounts"`
	LimitedAccounts         int64                            `json:"limited_accounts"`
	TotalPlatforms          int64                            `json:"total_platforms"`
	TotalDeposits           decimal.Decimal                  `json:"total_deposits"`
	TotalWithdrawals        decimal.Decimal                  `json:"total_withdrawals"`
	TotalCurrentBalance     decimal.Decimal                  `json:"total_current_balance"`
	OverallNetProfit        decimal.Decimal                  `json:"overall_net_profit"`
	PromotionsByStatus      map[domain.PromotionStatus]int64 `json:"promotions_by_status"`
	ActivePromotions        int64                            `json:"active_promotions"`
	CompletedPromotions     int64                            `json:"completed_promotions"`
	ExpiredPromotions       int64                            `json:"expired_promotions"`
	ExpiringDocumentsCount  int64                            `json:"expiring_documents_count"`
	ExpiringPromotionsCount int64                            `json:"expiring_promotions_count"`
	TopIdentitiesByProfit   []IdentityProfit                 `json:"top_identities_by_profit"`
}

// StatisticsService derives profit figures from ledger sums. Nothing is cached.
type StatisticsService struct {
	store QueryStore
	now   func() time.Time
}

func NewStatisticsService(store QueryStore) *StatisticsService {
	return &StatisticsService{store: store, now: time.Now}
}

func (s *StatisticsService) WithClock(now func() time.Time) *StatisticsService {
	s.now = now
	return s
}

func toIdentityProfit(t models.IdentityTotals) IdentityProfit {
	return IdentityProfit{
		IdentityID:          t.IdentityID,
		IdentityFullName:    t.FirstName + " " + t.LastName,
		TotalDeposits:       t.TotalDeposits,
		TotalWithdrawals:    t.TotalWithdrawals,
		TotalCurrentBalance: t.TotalBalance,
		NetProfit:           domain.NetProfit(t.TotalWithdrawals, t.TotalBalance, t.TotalDeposits),
		TotalAccounts:       t.AccountsCount,
	}
}

// ProfitForIdentity returns the identity's totals and net profit.
func (s *StatisticsService) ProfitForIdentity(ctx context.Context, identityID uuid.UUID) (*IdentityProfit, error) {
	totals, err := s.store.Queries().GetIdentityTotals(ctx, identityID)
	if err != nil {
		return nil, err
	}
	p := toIdentityProfit(totals)
	return &p, nil
}

// AllIdentityProfits returns every identity sorted by net profit, highest
// first. Ties keep identity creation order.
func (s *StatisticsService) AllIdentityProfits(ctx context.Context) ([]IdentityProfit, error) {
	return s.allProfits(ctx, s.store.Queries())
}

func (s *StatisticsService) allProfits(ctx context.Context, q repository.Querier) ([]IdentityProfit, error) {
	totals, err := q.ListIdentityTotals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]IdentityProfit, 0, len(totals))
	for _, t := range totals {
		out = append(out, toIdentityProfit(t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetProfit.GreaterThan(out[j].NetProfit)
	})
	return out, nil
}

// ProfitableIdentities keeps identities with net profit above zero, highest first.
func (s *StatisticsService) ProfitableIdentities(ctx context.Context) ([]IdentityProfit, error) {
	all, err := s.AllIdentityProfits(ctx)
	if err != nil {
		return nil, err
	}
	out := []IdentityProfit{}
	for _, p := range all {
		if p.NetProfit.IsPositive() {
			out = append(out, p)
		}
	}
	return out, nil
}

// UnprofitableIdentities keeps identities with net profit below zero, biggest
// loss first.
func (s *StatisticsService) UnprofitableIdentities(ctx context.Context) ([]IdentityProfit, error) {
	all, err := s.AllIdentityProfits(ctx)
	if err != nil {
		return nil, err
	}
	out := []IdentityProfit{}
	for _, p := range all {
		if p.NetProfit.IsNegative() {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetProfit.LessThan(out[j].NetProfit)
	})
	return out, nil
}

func (s *StatisticsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	today := calendarDay(s.now())
	q := s.store.Queries()

	totals, err := q.GetDashboardTotals(ctx, repository.DashboardParams{
		Today:   today,
		Horizon: today.AddDate(0, 0, dashboardHorizonDays),
	})
	if err != nil {
		return nil, err
	}
	profits, err := s.allProfits(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(profits) > dashboardTopN {
		profits = profits[:dashboardTopN]
	}

	byStatus := totals.PromotionsByStatus
	if byStatus == nil {
		byStatus = map[domain.PromotionStatus]int64{}
	}
	return &Dashboard{
		TotalIdentities:         totals.Identities,
		TotalAccounts:           totals.Accounts,
		ActiveAccounts:          totals.ActiveAccounts,
		LimitedAccounts:         totals.LimitedAccounts,
		TotalPlatforms:          totals.Platforms,
		TotalDeposits:           totals.TotalDeposits,
		TotalWithdrawals:        totals.TotalWithdrawals,
		TotalCurrentBalance:     totals.TotalBalance,
		OverallNetProfit:        domain.NetProfit(totals.TotalWithdrawals, totals.TotalBalance, totals.TotalDeposits),
		PromotionsByStatus:      byStatus,
		ActivePromotions:        byStatus[domain.PromotionActive],
		CompletedPromotions:     byStatus[domain.PromotionCompleted],
		ExpiredPromotions:       byStatus[domain.PromotionExpired],
		ExpiringDocumentsCount:  totals.ExpiringDocuments,
		ExpiringPromotionsCount: totals.ExpiringPromotions,
		TopIdentitiesByProfit:   profits,
	}, nil
}
