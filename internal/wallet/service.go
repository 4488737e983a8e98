package wallet

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"bx-rounds/internal/ledger"
)

var ErrInvalidCredit = errors.New("credit amount must be positive with at most 2 decimals")

// Service is the operator-facing view of the ledger.
type Service struct {
	ledger *ledger.Service
}

func New(l *ledger.Service) *Service {
	return &Service{ledger: l}
}

func (s *Service) Balance(uid int64) decimal.Decimal {
	return s.ledger.Balance(uid)
}

// Credit deposits amount for uid outside of any round.
func (s *Service) Credit(uid int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if uid <= 0 || !amount.IsPositive() || !amount.Equal(amount.Truncate(2)) {
		return decimal.Zero, ErrInvalidCredit
	}

	after, err := s.ledger.Credit(uid, amount, "operator:credit")
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit %d: %w", uid, err)
	}

	return after, nil
}
