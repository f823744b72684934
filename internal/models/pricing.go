package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FinalPrice returns base - discount, clamped at zero.
func FinalPrice(base, discount decimal.Decimal) decimal.Decimal {
	price := base.Sub(discount)
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// RefundPercent is the advisory cancellation policy: 7+ days before start
// refunds 100%, 3-7 days 50%, anything later nothing. The server computes
// the authoritative amount.
func RefundPercent(classStart, at time.Time) int64 {
	until := classStart.Sub(at)
	switch {
	case until >= 7*24*time.Hour:
		return 100
	case until >= 3*24*time.Hour:
		return 50
	default:
		return 0
	}
}

// EstimateRefund applies RefundPercent to the amount paid.
func EstimateRefund(paid decimal.Decimal, classStart, at time.Time) decimal.Decimal {
	if !paid.IsPositive() {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(RefundPercent(classStart, at))
	return paid.Mul(pct).Div(hundred).Round(2)
}

// FormatAmount renders money for notifications: whole amounts without
// decimals, everything else with two places.
func FormatAmount(amount decimal.Decimal) string {
	if amount.Equal(amount.Truncate(0)) {
		return amount.Truncate(0).String()
	}
	return amount.StringFixed(2)
}
