package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRolloverPercentage(t *testing.T) {
	tests := []struct {
		name   string
		done   string
		target decimal.NullDecimal
		want   string
	}{
		{"unset target", "250.00", decimal.NullDecimal{}, "100"},
		{"zero target", "0", decimal.NewNullDecimal(decimal.Zero), "100"},
		{"zero target ignores done", "999.99", decimal.NewNullDecimal(decimal.Zero), "100"},
		{"partial", "600.00", decimal.NewNullDecimal(dec("1000.00")), "60.00"},
		{"not clamped above target", "1100.00", decimal.NewNullDecimal(dec("1000.00")), "110.00"},
		{"half up", "1", decimal.NewNullDecimal(dec("8")), "12.50"},
		{"rounds third decimal", "2", decimal.NewNullDecimal(dec("3")), "66.67"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RolloverPercentage(dec(tt.done), tt.target)
			assert.True(t, dec(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestNetProfit(t *testing.T) {
	got := NetProfit(dec("30.00"), dec("85.00"), dec("100.00"))
	assert.True(t, dec("15.00").Equal(got))

	assert.True(t, NetProfit(decimal.Zero, decimal.Zero, dec("40")).Equal(dec("-40")))
}

func TestBetPayout(t *testing.T) {
	stake := dec("20.00")
	odds := dec("2.50")

	assert.True(t, BetPayout(stake, odds, BetWin).Equal(dec("50.00")))
	assert.True(t, BetPayout(stake, odds, BetVoid).Equal(stake))
	assert.True(t, BetPayout(stake, odds, BetLoss).IsZero())
	assert.True(t, BetPayout(dec("10.00"), dec("1.555"), BetWin).Equal(dec("15.55")))
}

func TestRoundOdds(t *testing.T) {
	assert.True(t, RoundOdds(dec("2.3456")).Equal(dec("2.346")))
	assert.True(t, RoundOdds(dec("1.0049")).Equal(dec("1.005")))
	assert.True(t, RoundOdds(dec("2.5")).Equal(dec("2.5")))
}

func TestMoney_Convert(t *testing.T) {
	source := NewMoney(dec("100"), "EUR")
	target := source.Convert("USD", dec("1.087"))

	assert.Equal(t, "USD", target.Currency)
	assert.True(t, target.Amount.Equal(dec("108.70")))
	assert.Equal(t, "108.70 USD", target.String())
}

func TestParseEnums(t *testing.T) {
	status, err := ParseWithdrawalStatus(" completed ")
	assert.NoError(t, err)
	assert.Equal(t, WithdrawalCompleted, status)

	_, err = ParseBetOutcome("DRAW")
	assert.ErrorIs(t, err, ErrValidation)

	role, err := ParseRole("admin")
	assert.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	kind, err := ParseOperationKind("bet")
	assert.NoError(t, err)
	assert.Equal(t, OperationBet, kind)
}
