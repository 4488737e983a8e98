package casino

import "github.com/shopspring/decimal"

// mode holds the per-game parts of the round lifecycle. The engine owns
// timing, admission and state transitions; a mode decides outcomes.
type mode interface {
	// admit validates game-specific join fields and copies them onto b.
	admit(req JoinRequest, b *Bet) error
	// prepare runs once when a round opens, before any bet is admitted.
	prepare(r *Round)
	// run starts the RUNNING phase.
	run(r *Round)
	// step handles one step timer tick while RUNNING.
	step(r *Round)
	cashout(r *Round, b *Bet) (CashoutAck, error)
	payout(amount, multiplier decimal.Decimal) decimal.Decimal
	decorate(r *Round, u *RoundUpdate)
}

func newMode(e *Engine) mode {
	switch e.cfg.Game {
	case GameDrift:
		return &driftMode{e: e}
	default:
		return &dropMode{e: e}
	}
}

func (e *Engine) cashout(userID int64) (CashoutAck, error) {
	if userID <= 0 {
		return CashoutAck{}, ErrInvalidPayload
	}

	r := e.round
	if r == nil || r.State != StateRunning {
		return CashoutAck{}, ErrRoundNotRunning
	}

	b, ok := r.bets[userID]
	if !ok {
		return CashoutAck{}, ErrNoActiveBet
	}

	if b.settled {
		return CashoutAck{}, ErrAlreadyCashed
	}

	return e.mode.cashout(r, b)
}
