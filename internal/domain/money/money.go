// Package money fixes the decimal scales used for marketplace currency.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"viberate/internal/domain"
)

const (
	// BudgetPlaces is the scale of project budgets and per-task prices.
	BudgetPlaces int32 = 2
	// USDCPlaces is the scale of payment amounts and fees.
	USDCPlaces int32 = 6
)

// Budget rounds half-to-even at budget scale.
func Budget(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(BudgetPlaces)
}

// USDC rounds half-to-even at USDC scale.
func USDC(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(USDCPlaces)
}

// ParseBudget parses a decimal string and rejects values finer than two places.
func ParseBudget(raw string) (decimal.Decimal, error) {
	return parse(raw, BudgetPlaces)
}

// ParseUSDC parses a decimal string and rejects values finer than six places.
func ParseUSDC(raw string) (decimal.Decimal, error) {
	return parse(raw, USDCPlaces)
}

func parse(raw string, places int32) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, domain.Invalid("amount is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, domain.Invalid("amount %q is not a decimal", raw)
	}
	if !d.Equal(d.Truncate(places)) {
		return decimal.Zero, domain.Invalid("amount %q has more than %d decimal places", raw, places)
	}
	return d, nil
}

// Format renders d with exactly the given number of places.
func Format(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
