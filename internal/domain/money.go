package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MoneyScale is the number of fractional digits kept for currency amounts
	MoneyScale int32 = 4
	// ShareScale is the number of fractional digits kept for share quantities
	ShareScale int32 = 8
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half-up to MoneyScale digits
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// PercentChange returns (current - original) / original * 100 with the ratio
// rounded half-up to four digits. A zero original yields zero.
func PercentChange(original, current decimal.Decimal) decimal.Decimal {
	if original.IsZero() {
		return decimal.Zero
	}
	return current.Sub(original).DivRound(original, MoneyScale).Mul(hundred)
}

// PercentOf returns part / whole * 100 rounded half-up to four digits, zero
// when whole is zero.
func PercentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, MoneyScale)
}

// NormalizeSymbol upper-cases and trims a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
