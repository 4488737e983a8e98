// Package audit archives ledger entries, settled bets and fairness epochs to
// sqlite. Writes are queued and applied by a single background job so the
// engine never waits on disk.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bx-rounds/internal/casino"
	"bx-rounds/internal/event"
	"bx-rounds/internal/fairness"
	"bx-rounds/internal/ledger"
	"bx-rounds/internal/logger"
	"bx-rounds/internal/outcome"
)

type write struct {
	query string
	args  []interface{}
}

type Service struct {
	db    *sql.DB
	queue chan write
	log   *zap.Logger
}

func New(db *sql.DB, queueSize int) *Service {
	if queueSize <= 0 {
		queueSize = 1024
	}

	return &Service{
		db:    db,
		queue: make(chan write, queueSize),
		log:   logger.Log.With(zap.String("component", "audit")),
	}
}

// Subscribe archives every event it receives from bus.
func (s *Service) Subscribe(bus *event.Bus) {

	bus.Subscribe(event.EventLedgerEntry, func(payload interface{}) {
		s.LogEntry(payload.(ledger.Entry))
	})

	bus.Subscribe(event.EventBetSettled, func(payload interface{}) {
		st := payload.(casino.Settlement)
		s.LogBet(st.Game, st.Bet)
	})

	bus.Subscribe(event.EventSeedCommitted, func(payload interface{}) {
		c := payload.(fairness.Commitment)
		s.enqueue(`INSERT OR IGNORE INTO epochs(hash, committed_at) VALUES (?, ?)`,
			c.ServerSeedHash, c.CommittedAt.UnixMilli())
	})

	bus.Subscribe(event.EventSeedRevealed, func(payload interface{}) {
		r := payload.(fairness.Revealed)
		s.enqueue(`
		INSERT INTO epochs(hash, seed, committed_at, revealed_at, rounds) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET seed = excluded.seed, revealed_at = excluded.revealed_at, rounds = excluded.rounds
		`, r.ServerSeedHash, r.ServerSeed, r.CommittedAt.UnixMilli(), r.RevealedAt.UnixMilli(), r.Rounds)
	})
}

func (s *Service) LogEntry(e ledger.Entry) {
	s.enqueue(`
	INSERT INTO ledger_entries(ref, uid, kind, amount, balance_after, reason, ts)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Ref, e.UserID, string(e.Kind), e.Amount.String(), e.BalanceAfter.String(), e.Reason, e.At.UnixMilli())
}

func (s *Service) LogBet(game casino.Game, b casino.Bet) {
	s.enqueue(`
	INSERT OR REPLACE INTO bets(id, round_id, game, uid, amount, client_seed, nonce, server_seed_hash,
		risk, rows_count, bin, multiplier, payout, result, balance_after, created_at, settled_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.RoundID, string(game), b.UserID, b.Amount.String(), b.ClientSeed, int64(b.Nonce), b.ServerSeedHash,
		string(b.Risk), b.Rows, b.Bin, b.Multiplier.String(), b.Payout.String(), string(b.Result),
		b.BalanceAfter.String(), b.CreatedAt.UnixMilli(), b.SettledAt.UnixMilli())
}

func (s *Service) enqueue(query string, args ...interface{}) {
	select {
	case s.queue <- write{query: query, args: args}:
	default:
		s.log.Warn("audit queue full, dropping write")
	}
}

// Start applies queued writes until ctx is done, then flushes what is left.
func (s *Service) Start(ctx context.Context) {
	for {
		select {
		case w := <-s.queue:
			s.apply(w)
		case <-ctx.Done():
			s.Flush()
			return
		}
	}
}

// Flush applies every queued write.
func (s *Service) Flush() {
	for {
		select {
		case w := <-s.queue:
			s.apply(w)
		default:
			return
		}
	}
}

// apply ignores cancellation so a shutdown never loses an accepted write.
func (s *Service) apply(w write) {
	if _, err := s.db.Exec(w.query, w.args...); err != nil {
		s.log.Error("audit write failed", zap.Error(err))
	}
}

// RecentBets returns the user's settled bets, newest first.
func (s *Service) RecentBets(ctx context.Context, userID int64, limit int) ([]casino.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, round_id, uid, amount, client_seed, nonce, server_seed_hash, risk, rows_count, bin,
		multiplier, payout, result, balance_after, created_at, settled_at
	FROM bets WHERE uid = ? ORDER BY settled_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query bets: %w", err)
	}
	defer rows.Close()

	out := []casino.Bet{}

	for rows.Next() {
		var (
			b                                        casino.Bet
			amount, mult, payout, after, risk, result string
			nonce, created, settled                  int64
		)

		if err := rows.Scan(&b.ID, &b.RoundID, &b.UserID, &amount, &b.ClientSeed, &nonce, &b.ServerSeedHash,
			&risk, &b.Rows, &b.Bin, &mult, &payout, &result, &after, &created, &settled); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}

		b.Nonce = uint64(nonce)
		b.Risk = outcome.Risk(risk)
		b.Result = outcome.Result(result)
		b.CreatedAt = time.UnixMilli(created)
		b.SettledAt = time.UnixMilli(settled)

		for _, f := range []struct {
			dst *decimal.Decimal
			src string
		}{{&b.Amount, amount}, {&b.Multiplier, mult}, {&b.Payout, payout}, {&b.BalanceAfter, after}} {
			if *f.dst, err = decimal.NewFromString(f.src); err != nil {
				return nil, fmt.Errorf("parse bet %s: %w", b.ID, err)
			}
		}

		out = append(out, b)
	}

	return out, rows.Err()
}

// Revealed looks up an archived seed by hash, for epochs older than the
// in-memory history.
func (s *Service) Revealed(ctx context.Context, hash string) (string, error) {
	var seed sql.NullString

	err := s.db.QueryRowContext(ctx, `SELECT seed FROM epochs WHERE hash = ?`, hash).Scan(&seed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query epoch: %w", err)
	}

	if !seed.Valid || seed.String == "" {
		return "", fairness.ErrNotRevealed
	}

	return seed.String, nil
}
