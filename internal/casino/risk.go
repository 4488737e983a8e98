package casino

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Limits struct {
	MaxBet decimal.Decimal
}

func DefaultLimits() Limits {
	return Limits{MaxBet: decimal.NewFromInt(100)}
}

// Validate enforces 0 < amount <= MaxBet and cent precision.
func (l Limits) Validate(amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.GreaterThan(l.MaxBet) {
		return reject(CodeInvalidBet, fmt.Sprintf("bet must be greater than 0 and at most %s", l.MaxBet))
	}

	if !amount.Equal(amount.Truncate(2)) {
		return reject(CodeInvalidBet, "bet supports up to 2 decimals")
	}

	return nil
}
