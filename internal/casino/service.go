package casino

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bx-rounds/internal/event"
	"bx-rounds/internal/fairness"
	"bx-rounds/internal/ledger"
	"bx-rounds/internal/ring"
)

const driftHistorySize = 100

// Service groups the per-game engines with the read models fed from their
// settlements.
type Service struct {
	gen     *fairness.Generator
	ledger  *ledger.Service
	bus     *event.Bus
	engines map[Game]*Engine

	Stats       *Stats
	Leaderboard *Leaderboard
	History     *ring.Buffer[RoundSummary]
}

func NewService(gen *fairness.Generator, l *ledger.Service, bus *event.Bus) *Service {
	s := &Service{
		gen:         gen,
		ledger:      l,
		bus:         bus,
		engines:     make(map[Game]*Engine),
		Stats:       NewStats(),
		Leaderboard: NewLeaderboard(),
		History:     ring.New[RoundSummary](driftHistorySize),
	}

	RegisterConsumers(bus, s.Stats, s.Leaderboard, s.History)

	return s
}

// AddEngine creates the engine for cfg.Game. Engines only start with Run.
func (s *Service) AddEngine(cfg Config, out Broadcaster, opts ...Option) *Engine {
	e := NewEngine(cfg, s.gen, s.ledger, out, s.bus, opts...)
	s.engines[cfg.Game] = e

	return e
}

func (s *Service) Engine(g Game) (*Engine, bool) {
	e, ok := s.engines[g]

	return e, ok
}

func (s *Service) Generator() *fairness.Generator { return s.gen }

func (s *Service) Ledger() *ledger.Service { return s.ledger }

// Run drives every engine until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for game, e := range s.engines {
		g.Go(func() error {
			if err := e.Run(ctx); err != nil {
				return fmt.Errorf("%s engine: %w", game, err)
			}

			return nil
		})
	}

	return g.Wait()
}

func (e *Engine) Game() Game { return e.cfg.Game }

// Join admits a bet into the current round, opening one if the game is idle.
func (e *Engine) Join(ctx context.Context, req JoinRequest) (JoinAck, error) {
	r, err := e.call(ctx, command{kind: cmdJoin, join: req})

	return r.joined, err
}

// Cashout settles the user's open DRIFT bet at the current multiplier.
func (e *Engine) Cashout(ctx context.Context, userID int64) (CashoutAck, error) {
	r, err := e.call(ctx, command{kind: cmdCashout, userID: userID})

	return r.cashed, err
}

// Snapshot returns the latest published round state with a fresh countdown.
func (e *Engine) Snapshot() RoundUpdate {
	u := *e.snapshot.Load()
	if u.State == StateCountdown {
		u.TimeLeftMs = timeLeft(u.deadline, e.now())
	}

	return u
}

func (e *Engine) call(ctx context.Context, c command) (reply, error) {
	c.resp = make(chan reply, 1)

	select {
	case e.cmds <- c:
	case <-e.done:
		return reply{}, ErrStopped
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}

	select {
	case r := <-c.resp:
		return r, r.err
	case <-e.done:
		return reply{}, ErrStopped
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}
