package casino

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bx-rounds/internal/outcome"
)

var (
	one  = decimal.NewFromInt(1)
	zero = decimal.Zero
)

type driftMode struct {
	e *Engine
}

func (m *driftMode) admit(req JoinRequest, b *Bet) error {
	auto := req.AutoCashout.Truncate(2)
	if !req.AutoCashout.IsZero() && !auto.GreaterThan(one) {
		return reject(CodeInvalidPayload, "autoCashout must be at least 1.01")
	}

	b.AutoCashout = auto

	return nil
}

// prepare draws the crash target before any bet is admitted.
func (m *driftMode) prepare(r *Round) {
	r.driftTarget = m.e.cfg.Curve.Target(r.epoch, r.ID, r.roundNonce)
	r.multiplier = one
}

func (m *driftMode) run(r *Round) {
	r.multiplier = one
	m.e.broadcastUpdate()
	m.e.schedule(timerStep, m.e.cfg.TickInterval, true)
}

// step advances the multiplier. Auto cashouts below the target settle at
// their own multiplier; reaching the target crashes the round.
func (m *driftMode) step(r *Round) {
	next := m.e.cfg.Curve.Next(r.multiplier, m.e.now().Sub(r.StartedAt))

	for _, b := range r.order {
		if b.settled || b.AutoCashout.IsZero() {
			continue
		}

		if b.AutoCashout.LessThanOrEqual(next) && b.AutoCashout.LessThan(r.driftTarget) {
			m.cashoutAt(r, b, b.AutoCashout)
		}
	}

	if next.GreaterThanOrEqual(r.driftTarget) {
		m.crash(r)
		return
	}

	r.multiplier = next
	m.e.broadcastUpdate()
}

func (m *driftMode) crash(r *Round) {
	r.multiplier = r.driftTarget

	for _, b := range r.order {
		if b.settled {
			continue
		}

		m.e.settleIsolated(b, func() error {
			return m.e.settle(b, zero)
		})
	}

	m.e.log.Info("round crashed", zap.String("round", r.ID), zap.String("at", r.driftTarget.String()))

	m.e.out.Broadcast(EvCrashed, Crashed{
		RoundID:         r.ID,
		CrashMultiplier: r.driftTarget,
		Proof: Proof{
			ServerSeedHash: r.epoch.Hash,
			Nonce:          r.roundNonce,
		},
	})

	m.e.finish(r)
}

func (m *driftMode) cashout(r *Round, b *Bet) (CashoutAck, error) {
	if !r.multiplier.LessThan(r.driftTarget) {
		return CashoutAck{}, ErrRoundNotRunning
	}

	return m.cashoutAt(r, b, r.multiplier)
}

func (m *driftMode) cashoutAt(r *Round, b *Bet, at decimal.Decimal) (CashoutAck, error) {
	atMs := m.e.now().Sub(r.StartedAt).Milliseconds()

	mult := at
	b.CashoutMultiplier = &mult
	b.CashedOutAtMs = atMs

	if err := m.e.settle(b, at); err != nil {
		b.CashoutMultiplier = nil
		b.CashedOutAtMs = 0

		m.e.log.Error("cashout failed", zap.String("bet", b.ID), zap.Error(err))

		return CashoutAck{}, ErrInternal
	}

	ack := CashoutAck{
		UserID:       b.UserID,
		AtMultiplier: at,
		Payout:       b.Payout,
		AtMs:         atMs,
		BalanceAfter: b.BalanceAfter,
	}

	m.e.out.Broadcast(EvCashedOut, ack)

	return ack, nil
}

func (m *driftMode) payout(amount, multiplier decimal.Decimal) decimal.Decimal {
	return outcome.CashoutPayout(amount, multiplier)
}

func (m *driftMode) decorate(r *Round, u *RoundUpdate) {
	if r.State != StateRunning && r.State != StateFinished {
		return
	}

	mult := r.multiplier
	u.Multiplier = &mult
}
