package casino

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bx-rounds/internal/outcome"
)

type dropMode struct {
	e *Engine
}

func (m *dropMode) admit(req JoinRequest, b *Bet) error {
	risk := outcome.RiskEasy

	if req.Risk != "" {
		parsed, err := outcome.ParseRisk(req.Risk)
		if err != nil {
			return ErrInvalidRisk
		}

		risk = parsed
	}

	rows := req.Rows
	if rows == 0 {
		rows = outcome.DefaultRows
	}

	if _, err := outcome.Multipliers(risk, rows); err != nil {
		return reject(CodeInvalidPayload, fmt.Sprintf("unsupported rows %d", rows))
	}

	b.Risk = risk
	b.Rows = rows

	return nil
}

func (m *dropMode) prepare(*Round) {}

// run resolves the locked bets in join order. With no stagger the batch is
// settled inline; otherwise one bet settles per step timer.
func (m *dropMode) run(r *Round) {
	r.cursor = 0

	if m.e.cfg.ResultStagger <= 0 {
		for r.cursor < len(r.order) {
			m.next(r)
		}

		m.e.finish(r)

		return
	}

	m.step(r)
}

func (m *dropMode) step(r *Round) {
	if r.cursor < len(r.order) {
		m.next(r)
	}

	if r.cursor >= len(r.order) {
		m.e.finish(r)
		return
	}

	m.e.schedule(timerStep, m.e.cfg.ResultStagger, false)
}

func (m *dropMode) next(r *Round) {
	b := r.order[r.cursor]
	r.cursor++

	ok := m.e.settleIsolated(b, func() error {
		res, err := outcome.ResolvePath(r.epoch, b.ClientSeed, b.Nonce, b.Risk, b.Rows)
		if err != nil {
			return fmt.Errorf("resolve path: %w", err)
		}

		b.Path = res.Path
		b.Bin = res.Bin

		return m.e.settle(b, res.Multiplier)
	})

	if !ok {
		return
	}

	m.e.out.Broadcast(EvYourResult, BetResult{
		UserID:     b.UserID,
		BetID:      b.ID,
		RoundID:    b.RoundID,
		Path:       b.Path,
		Bin:        b.Bin,
		Multiplier: b.Multiplier,
		Payout:     b.Payout,
		Result:     b.Result,
		Proof: Proof{
			ServerSeedHash: b.ServerSeedHash,
			ClientSeed:     b.ClientSeed,
			Nonce:          b.Nonce,
		},
		BalanceAfter: b.BalanceAfter,
		CreatedAt:    b.CreatedAt,
	})
}

func (m *dropMode) cashout(*Round, *Bet) (CashoutAck, error) {
	return CashoutAck{}, reject(CodeInvalidPayload, "cashout is not available in this game")
}

func (m *dropMode) decorate(*Round, *RoundUpdate) {}

func (m *dropMode) payout(amount, multiplier decimal.Decimal) decimal.Decimal {
	return outcome.Payout(amount, multiplier)
}
