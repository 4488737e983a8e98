// Package outcome turns fairness-derived randomness into bet outcomes for the
// DROP (path) and DRIFT (crash) games.
package outcome

import "github.com/shopspring/decimal"

type Result string

const (
	Win  Result = "WIN"
	Loss Result = "LOSS"
	Push Result = "PUSH"
)

// Payout is amount × multiplier rounded to cents. DROP table multipliers
// settle through it.
func Payout(amount, multiplier decimal.Decimal) decimal.Decimal {
	return amount.Mul(multiplier).Round(2)
}

// CashoutPayout is the exact amount × multiplier paid on a DRIFT cash-out.
func CashoutPayout(amount, multiplier decimal.Decimal) decimal.Decimal {
	return amount.Mul(multiplier)
}

func Classify(amount, payout decimal.Decimal) Result {
	switch payout.Cmp(amount) {
	case 1:
		return Win
	case 0:
		return Push
	default:
		return Loss
	}
}
