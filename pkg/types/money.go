package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for currency amounts.
const MoneyScale = 2

// FormatMoney renders an amount with exactly two fractional digits.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(MoneyScale)
}

// FormatMoneyPtr renders an optional amount.
func FormatMoneyPtr(amount *decimal.Decimal) *string {
	if amount == nil {
		return nil
	}
	formatted := FormatMoney(*amount)
	return &formatted
}

// ParseMoney parses a non-negative currency amount with at most two fractional digits.
func ParseMoney(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", value)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must be non-negative")
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimal places", value, MoneyScale)
	}
	return amount, nil
}

// ParsePositiveMoney is ParseMoney that also rejects zero.
func ParsePositiveMoney(value string) (decimal.Decimal, error) {
	amount, err := ParseMoney(value)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}
