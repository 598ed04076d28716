package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/betflow/betflow-api/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExchangeRateService defines the interface for fetching FX rates.
type ExchangeRateService interface {
	// GetExchangeRate returns the rate to convert from source to target currency.
	GetExchangeRate(ctx context.Context, sourceCurrency, targetCurrency string) (decimal.Decimal, error)
}

// RateFetcher returns every quoted rate for a base currency.
type RateFetcher interface {
	Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// StaticExchangeRateService serves fixed rates relative to EUR. It backs
// tests and deployments without a rate API.
type StaticExchangeRateService struct {
	perEUR map[string]decimal.Decimal
}

func NewStaticExchangeRateService() *StaticExchangeRateService {
	return &StaticExchangeRateService{perEUR: map[string]decimal.Decimal{
		"EUR": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("1.087"),
		"GBP": decimal.RequireFromString("0.86"),
		"CHF": decimal.RequireFromString("0.96"),
	}}
}

// GetExchangeRate returns target/source computed through EUR.
func (s *StaticExchangeRateService) GetExchangeRate(ctx context.Context, source, target string) (decimal.Decimal, error) {
	if source == target {
		return decimal.NewFromInt(1), nil
	}
	sourceRate, ok1 := s.perEUR[source]
	targetRate, ok2 := s.perEUR[target]
	if !ok1 || !ok2 {
		return decimal.Zero, domain.NewValidationError("currency", fmt.Sprintf("unsupported currency pair %s/%s", source, target))
	}
	return targetRate.DivRound(sourceRate, 8), nil
}

const fxCachePrefix = "fx"

// CachedExchangeRateService fetches rate tables on demand and keeps them in
// Redis for ttl. A nil Redis client disables caching.
type CachedExchangeRateService struct {
	fetcher RateFetcher
	redis   redis.Cmdable
	ttl     time.Duration
}

func NewCachedExchangeRateService(fetcher RateFetcher, rdb redis.Cmdable, ttl time.Duration) *CachedExchangeRateService {
	return &CachedExchangeRateService{fetcher: fetcher, redis: rdb, ttl: ttl}
}

func (s *CachedExchangeRateService) GetExchangeRate(ctx context.Context, source, target string) (decimal.Decimal, error) {
	if source == target {
		return decimal.NewFromInt(1), nil
	}
	rates, err := s.table(ctx, source)
	if err != nil {
		return decimal.Zero, err
	}
	rate, ok := rates[target]
	if !ok {
		return decimal.Zero, domain.NewValidationError("to", "unsupported currency "+target)
	}
	return rate, nil
}

func (s *CachedExchangeRateService) table(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	key := fxCachePrefix + ":" + base
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			var cached map[string]decimal.Decimal
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			zap.L().Warn("redis fx lookup failed", zap.Error(err))
		}
	}

	rates, err := s.fetcher.Rates(ctx, base)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		payload, err := json.Marshal(rates)
		if err == nil {
			if err := s.redis.Set(ctx, key, payload, s.ttl).Err(); err != nil {
				zap.L().Warn("redis fx cache set failed", zap.Error(err))
			}
		}
	}
	return rates, nil
}

// Conversion is the result of a currency conversion.
type Conversion struct {
	Amount          decimal.Decimal `json:"amount"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Rate            decimal.Decimal `json:"rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
}

type CurrencyService struct {
	rates ExchangeRateService
}

func NewCurrencyService(rates ExchangeRateService) *CurrencyService {
	return &CurrencyService{rates: rates}
}

// Convert multiplies amount by the from/to rate and rounds to cents.
func (s *CurrencyService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*Conversion, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if len(from) != 3 || len(to) != 3 {
		return nil, domain.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	if amount.IsNegative() {
		return nil, domain.NewValidationError("amount", "cannot be negative")
	}

	rate, err := s.rates.GetExchangeRate(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("exchange rate %s/%s: %w", from, to, err)
	}
	converted := domain.NewMoney(amount, from).Convert(to, rate)
	return &Conversion{
		Amount:          amount,
		From:            from,
		To:              to,
		Rate:            rate,
		ConvertedAmount: converted.Amount,
	}, nil
}
