package casino

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bx-rounds/internal/event"
	"bx-rounds/internal/fairness"
	"bx-rounds/internal/ledger"
	"bx-rounds/internal/logger"
	"bx-rounds/internal/outcome"
)

const maxClientSeedLen = 64

// Broadcaster delivers outbound events to connected sessions.
type Broadcaster interface {
	Broadcast(event string, data interface{})
	SendToUser(userID int64, event string, data interface{})
}

type Config struct {
	Game           Game
	Countdown      time.Duration
	UpdateInterval time.Duration
	Grace          time.Duration
	// ResultStagger paces DROP results; zero settles the whole batch at once.
	ResultStagger time.Duration
	TickInterval  time.Duration
	Limits        Limits
	Curve         outcome.Curve
}

func DefaultConfig(game Game) Config {
	return Config{
		Game:           game,
		Countdown:      10 * time.Second,
		UpdateInterval: 250 * time.Millisecond,
		Grace:          time.Second,
		ResultStagger:  100 * time.Millisecond,
		TickInterval:   100 * time.Millisecond,
		Limits:         DefaultLimits(),
		Curve:          outcome.DefaultCurve(),
	}
}

type cmdKind int

const (
	cmdJoin cmdKind = iota + 1
	cmdCashout
	cmdTimer
)

type command struct {
	kind   cmdKind
	join   JoinRequest
	userID int64
	timer  timerEvent
	resp   chan reply
}

type reply struct {
	joined JoinAck
	cashed CashoutAck
	err    error
}

// Engine runs the rounds of one game. Every mutation of the current round
// happens on the goroutine executing Run.
type Engine struct {
	cfg    Config
	mode   mode
	gen    *fairness.Generator
	ledger *ledger.Service
	out    Broadcaster
	bus    *event.Bus
	log    *zap.Logger
	now    func() time.Time
	sched  scheduler

	cmds chan command
	done chan struct{}

	round    *Round
	timers   roundTimers
	snapshot atomic.Pointer[RoundUpdate]
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func withScheduler(s scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

func NewEngine(cfg Config, gen *fairness.Generator, l *ledger.Service, out Broadcaster, bus *event.Bus, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		gen:    gen,
		ledger: l,
		out:    out,
		bus:    bus,
		log:    logger.Log,
		now:    time.Now,
		sched:  realScheduler{},
		cmds:   make(chan command, 64),
		done:   make(chan struct{}),
		timers: make(roundTimers),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.log = e.log.With(zap.String("game", string(cfg.Game)))
	e.mode = newMode(e)
	e.publishSnapshot()

	return e
}

// Run processes commands until ctx is done. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.timers.stopAll()

	e.log.Info("engine started")

	for {
		select {
		case c := <-e.cmds:
			e.handle(c)
		case <-ctx.Done():
			e.log.Info("engine stopped")

			return nil
		}
	}
}

func (e *Engine) handle(c command) {
	switch c.kind {
	case cmdJoin:
		ack, err := e.join(c.join)
		c.resp <- reply{joined: ack, err: err}
	case cmdCashout:
		ack, err := e.cashout(c.userID)
		c.resp <- reply{cashed: ack, err: err}
	case cmdTimer:
		e.onTimer(c.timer)
	}
}

func (e *Engine) enqueue(c command) {
	select {
	case e.cmds <- c:
	case <-e.done:
	}
}

func (e *Engine) schedule(kind timerKind, d time.Duration, repeat bool) {
	ev := timerEvent{kind: kind, roundID: e.round.ID}
	fn := func() { e.enqueue(command{kind: cmdTimer, timer: ev}) }

	if repeat {
		e.timers.set(kind, e.sched.Every(d, fn))
		return
	}

	e.timers.set(kind, e.sched.After(d, fn))
}

func (e *Engine) onTimer(ev timerEvent) {
	r := e.round
	if r == nil || r.ID != ev.roundID {
		return
	}

	switch ev.kind {
	case timerCountdown:
		e.closeCountdown(r)
	case timerUpdate:
		if r.State == StateCountdown {
			e.broadcastUpdate()
		}
	case timerStep:
		if r.State == StateRunning {
			e.mode.step(r)
		}
	case timerGrace:
		if r.State == StateFinished {
			e.resetIdle()
		}
	}
}

func (e *Engine) join(req JoinRequest) (JoinAck, error) {
	req.ClientSeed = strings.TrimSpace(req.ClientSeed)

	if req.UserID <= 0 || req.ClientSeed == "" || len(req.ClientSeed) > maxClientSeedLen ||
		strings.HasPrefix(req.ClientSeed, fairness.RoundPrefix) {
		return JoinAck{}, ErrInvalidPayload
	}

	if err := e.cfg.Limits.Validate(req.Bet); err != nil {
		return JoinAck{}, err
	}

	bet := &Bet{
		UserID:     req.UserID,
		Amount:     req.Bet,
		ClientSeed: req.ClientSeed,
	}

	if err := e.mode.admit(req, bet); err != nil {
		return JoinAck{}, err
	}

	r := e.round
	if r != nil && r.State != StateCountdown {
		return JoinAck{}, ErrRoundLocked
	}

	if r != nil {
		if _, dup := r.bets[req.UserID]; dup {
			return JoinAck{}, ErrAlreadyJoined
		}
	}

	bet.ID = uuid.New().String()

	// The ledger is shared with other games: no round state changes until the
	// debit succeeds.
	if _, err := e.ledger.Debit(req.UserID, req.Bet, "bet:"+bet.ID); err != nil {
		return JoinAck{}, ErrInsufficientBalance
	}

	if r == nil {
		r = e.openRound()
	}

	bet.RoundID = r.ID
	bet.ServerSeedHash = r.epoch.Hash
	bet.CreatedAt = e.now()

	bet.Nonce = e.gen.NextNonce(req.UserID)

	r.bets[req.UserID] = bet
	r.order = append(r.order, bet)

	e.log.Debug("bet admitted",
		zap.String("round", r.ID),
		zap.Int64("user", bet.UserID),
		zap.String("amount", bet.Amount.String()),
		zap.Uint64("nonce", bet.Nonce))

	ack := JoinAck{
		RoundID:        r.ID,
		UserID:         bet.UserID,
		BetID:          bet.ID,
		Nonce:          bet.Nonce,
		ServerSeedHash: bet.ServerSeedHash,
	}

	e.out.Broadcast(EvJoined, ack)
	e.broadcastUpdate()

	return ack, nil
}

// openRound moves IDLE -> COUNTDOWN.
func (e *Engine) openRound() *Round {
	epoch, roundNonce := e.gen.Acquire()

	r := &Round{
		ID:                uuid.New().String(),
		Game:              e.cfg.Game,
		State:             StateCountdown,
		CountdownDeadline: e.now().Add(e.cfg.Countdown),
		bets:              make(map[int64]*Bet),
		epoch:             epoch,
		roundNonce:        roundNonce,
	}

	e.round = r
	e.mode.prepare(r)

	e.schedule(timerCountdown, e.cfg.Countdown, false)
	e.schedule(timerUpdate, e.cfg.UpdateInterval, true)

	e.log.Info("round opened", zap.String("round", r.ID), zap.String("serverSeedHash", epoch.Hash))

	return r
}

// closeCountdown handles deadline expiry: RUNNING with bets, IDLE without.
func (e *Engine) closeCountdown(r *Round) {
	if r.State != StateCountdown {
		return
	}

	e.timers.stop(timerUpdate)

	if len(r.order) == 0 {
		e.log.Info("round expired empty", zap.String("round", r.ID))
		e.resetIdle()

		return
	}

	r.State = StateRunning
	r.StartedAt = e.now()

	e.out.Broadcast(EvRoundStarted, RoundStarted{
		RoundID:       r.ID,
		LockedPlayers: len(r.order),
		StartedAt:     r.StartedAt.UnixMilli(),
	})

	e.log.Info("round started", zap.String("round", r.ID), zap.Int("players", len(r.order)))

	e.mode.run(r)
}

// finish moves RUNNING -> FINISHED and schedules the return to IDLE.
func (e *Engine) finish(r *Round) {
	r.State = StateFinished
	r.FinishedAt = e.now()
	e.timers.stop(timerStep)

	duration := r.FinishedAt.Sub(r.StartedAt).Milliseconds()

	e.out.Broadcast(EvRoundFinished, RoundFinished{RoundID: r.ID, DurationMs: duration})
	e.bus.Publish(event.EventRoundFinished, e.summarize(r))

	e.release(r)
	e.broadcastUpdate()

	e.log.Info("round finished", zap.String("round", r.ID), zap.Int64("durationMs", duration))

	e.schedule(timerGrace, e.cfg.Grace, false)
}

func (e *Engine) summarize(r *Round) RoundSummary {
	s := RoundSummary{
		Game:           r.Game,
		RoundID:        r.ID,
		Players:        len(r.order),
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		ServerSeedHash: r.epoch.Hash,
		RoundNonce:     r.roundNonce,
		Wagered:        decimal.Zero,
		PaidOut:        decimal.Zero,
	}

	for _, b := range r.order {
		s.Wagered = s.Wagered.Add(b.Amount)
		s.PaidOut = s.PaidOut.Add(b.Payout)
	}

	if r.Game == GameDrift {
		target := r.driftTarget
		s.CrashMultiplier = &target
	}

	return s
}

func (e *Engine) release(r *Round) {
	if r.released {
		return
	}

	r.released = true
	e.gen.Release(r.epoch)
}

func (e *Engine) resetIdle() {
	e.timers.stopAll()

	if e.round != nil {
		e.release(e.round)
	}

	e.round = nil
	e.broadcastUpdate()
}

// settle credits payout for multiplier and freezes the bet. It is the only
// place a bet's outcome fields are written.
func (e *Engine) settle(b *Bet, multiplier decimal.Decimal) error {
	if b.settled {
		return ErrAlreadyCashed
	}

	payout := e.mode.payout(b.Amount, multiplier)

	after, err := e.ledger.Credit(b.UserID, payout, "payout:"+b.ID)
	if err != nil {
		return fmt.Errorf("credit payout: %w", err)
	}

	b.Multiplier = multiplier
	b.Payout = payout
	b.Result = outcome.Classify(b.Amount, payout)
	b.BalanceAfter = after
	b.SettledAt = e.now()
	b.settled = true

	e.bus.Publish(event.EventBetSettled, Settlement{Game: e.cfg.Game, Bet: *b})

	return nil
}

// settleIsolated runs fn for one bet, retrying once. A bet that still cannot
// be settled is closed as a loss so the rest of the round proceeds.
func (e *Engine) settleIsolated(b *Bet, fn func() error) bool {
	err := safely(fn)
	if err == nil {
		return true
	}

	e.log.Warn("settlement failed, retrying", zap.String("bet", b.ID), zap.Error(err))

	err = safely(fn)
	if err == nil {
		return true
	}

	e.log.Error("settlement failed, closing bet as loss", zap.String("bet", b.ID), zap.Int64("user", b.UserID), zap.Error(err))

	if !b.settled {
		b.Multiplier = decimal.Zero
		b.Payout = decimal.Zero
		b.Result = outcome.Loss
		b.BalanceAfter = e.ledger.Balance(b.UserID)
		b.SettledAt = e.now()
		b.settled = true

		e.bus.Publish(event.EventBetSettled, Settlement{Game: e.cfg.Game, Bet: *b})
	}

	e.out.SendToUser(b.UserID, EvError, ErrorEvent{Code: CodeInternal, Message: "bet could not be settled"})

	return false
}

func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn()
}

func (e *Engine) update() RoundUpdate {
	u := RoundUpdate{
		Game:           e.cfg.Game,
		State:          StateIdle,
		ServerSeedHash: e.gen.CommitmentHash(),
	}

	r := e.round
	if r == nil {
		return u
	}

	u.State = r.State
	u.RoundID = r.ID
	u.Players = len(r.order)
	u.ServerSeedHash = r.epoch.Hash

	if r.State == StateCountdown {
		u.deadline = r.CountdownDeadline
		u.TimeLeftMs = timeLeft(r.CountdownDeadline, e.now())
	}

	e.mode.decorate(r, &u)

	return u
}

func (e *Engine) publishSnapshot() RoundUpdate {
	u := e.update()
	e.snapshot.Store(&u)

	return u
}

func (e *Engine) broadcastUpdate() {
	e.out.Broadcast(EvRoundUpdate, e.publishSnapshot())
}

func timeLeft(deadline, now time.Time) int64 {
	left := deadline.Sub(now).Milliseconds()
	if left < 0 {
		return 0
	}

	return left
}
