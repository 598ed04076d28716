package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fraction digits kept for stored amounts.
const MoneyScale = 2

// OddsScale matches the precision of the odds column.
const OddsScale = 3

var (
	hundred = decimal.NewFromInt(100)
	// MinOdds is the lowest decimal odds accepted for a bet.
	MinOdds = decimal.RequireFromString("1.01")
)

// RoundMoney rounds half away from zero to two places, which is half-up for the
// positive amounts the ledger stores.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// RoundOdds rounds decimal odds half-up to three places.
func RoundOdds(d decimal.Decimal) decimal.Decimal {
	return d.Round(OddsScale)
}

// RolloverPercentage returns done/target*100 rounded to two places. A missing or
// zero target counts as fully rolled over. Values above 100 are not clamped.
func RolloverPercentage(done decimal.Decimal, target decimal.NullDecimal) decimal.Decimal {
	if !target.Valid || target.Decimal.IsZero() {
		return hundred
	}
	return done.Mul(hundred).DivRound(target.Decimal, MoneyScale)
}

// NetProfit is the cash-flow profit: money extracted plus money still parked
// minus money put in.
func NetProfit(withdrawals, balance, deposits decimal.Decimal) decimal.Decimal {
	return withdrawals.Add(balance).Sub(deposits)
}

// BetPayout is the balance credit applied when a bet settles.
func BetPayout(stake, odds decimal.Decimal, outcome BetOutcome) decimal.Decimal {
	switch outcome {
	case BetWin:
		return RoundMoney(stake.Mul(odds))
	case BetVoid:
		return stake
	default:
		return decimal.Zero
	}
}

// Money represents an amount in a specific currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string // ISO 4217
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Convert converts the money to a target currency using rate = target/source.
func (m Money) Convert(targetCurrency string, rate decimal.Decimal) Money {
	return Money{
		Amount:   RoundMoney(m.Amount.Mul(rate)),
		Currency: targetCurrency,
	}
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(MoneyScale), m.Currency)
}
