package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx-rounds/internal/casino"
	"bx-rounds/internal/db"
	"bx-rounds/internal/event"
	"bx-rounds/internal/fairness"
	"bx-rounds/internal/ledger"
	"bx-rounds/internal/outcome"
)

func newTestService(t *testing.T) (*Service, *event.Bus) {
	t.Helper()

	database, err := db.Init(filepath.Join(t.TempDir(), "audit.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	s := New(database, 16)
	bus := event.NewBus()
	s.Subscribe(bus)

	return s, bus
}

func TestBetsArchivedNewestFirst(t *testing.T) {
	s, bus := newTestService(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, mult := range []string{"5.6", "0.3"} {
		amount := decimal.NewFromInt(1)
		payout := outcome.Payout(amount, decimal.RequireFromString(mult))

		bus.Publish(event.EventBetSettled, casino.Settlement{Game: casino.GameDrop, Bet: casino.Bet{
			ID:             []string{"b1", "b2"}[i],
			RoundID:        "r1",
			UserID:         3,
			Amount:         amount,
			ClientSeed:     "abc",
			Nonce:          uint64(i),
			ServerSeedHash: "hash",
			Risk:           outcome.RiskHard,
			Rows:           8,
			Bin:            4,
			Multiplier:     decimal.RequireFromString(mult),
			Payout:         payout,
			Result:         outcome.Classify(amount, payout),
			BalanceAfter:   decimal.NewFromInt(100),
			CreatedAt:      base,
			SettledAt:      base.Add(time.Duration(i) * time.Second),
		}})
	}

	s.Flush()

	bets, err := s.RecentBets(context.Background(), 3, 10)
	require.NoError(t, err)
	require.Len(t, bets, 2)

	assert.Equal(t, "b2", bets[0].ID)
	assert.Equal(t, outcome.Loss, bets[0].Result)
	assert.Equal(t, "b1", bets[1].ID)
	assert.Equal(t, "5.6", bets[1].Payout.String())
	assert.Equal(t, outcome.RiskHard, bets[1].Risk)

	none, err := s.RecentBets(context.Background(), 4, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEpochLifecycleArchived(t *testing.T) {
	s, bus := newTestService(t)
	now := time.Now()

	bus.Publish(event.EventSeedCommitted, fairness.Commitment{ServerSeedHash: "h1", CommittedAt: now})
	s.Flush()

	_, err := s.Revealed(context.Background(), "h1")
	require.ErrorIs(t, err, fairness.ErrNotRevealed)

	bus.Publish(event.EventSeedRevealed, fairness.Revealed{
		ServerSeedHash: "h1", ServerSeed: "seed", CommittedAt: now, RevealedAt: now, Rounds: 3,
	})
	s.Flush()

	seed, err := s.Revealed(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "seed", seed)

	_, err = s.Revealed(context.Background(), "missing")
	require.ErrorIs(t, err, fairness.ErrNotRevealed)
}

func TestLedgerEntriesArchived(t *testing.T) {
	s, bus := newTestService(t)

	bus.Publish(event.EventLedgerEntry, ledger.Entry{
		Ref: "ref-1", UserID: 1, Kind: ledger.KindDebit,
		Amount: decimal.NewFromInt(2), BalanceAfter: decimal.NewFromInt(98), Reason: "bet:x", At: time.Now(),
	})
	s.Flush()

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE uid = 1`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestStartDrainsOnShutdown(t *testing.T) {
	s, bus := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		s.Start(ctx)
		close(done)
	}()

	bus.Publish(event.EventLedgerEntry, ledger.Entry{
		Ref: "ref-2", UserID: 2, Kind: ledger.KindCredit,
		Amount: decimal.NewFromInt(1), BalanceAfter: decimal.NewFromInt(101), At: time.Now(),
	})

	cancel()
	<-done

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE uid = 2`).Scan(&n))
	assert.Equal(t, 1, n)
}
