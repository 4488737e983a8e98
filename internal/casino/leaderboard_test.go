package casino

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx-rounds/internal/outcome"
)

func settled(uid int64, amount, payout string) Bet {
	a, p := dec(amount), dec(payout)

	return Bet{UserID: uid, Amount: a, Payout: p, Multiplier: p.Div(a), Result: outcome.Classify(a, p)}
}

func TestLeaderboardRanksByProfit(t *testing.T) {
	l := NewLeaderboard()

	l.Record(settled(1, "10", "0"))
	l.Record(settled(2, "10", "56"))
	l.Record(settled(3, "5", "5"))
	l.Record(settled(2, "10", "0"))

	top := l.Top(0)
	require.Len(t, top, 3)

	assert.Equal(t, int64(2), top[0].UserID)
	assert.Equal(t, 1, top[0].Rank)
	assertDec(t, "36", top[0].Profit)
	assertDec(t, "46", top[0].BiggestWin)
	assertDec(t, "0.5", top[0].WinRate)

	assert.Equal(t, int64(3), top[1].UserID)
	assert.Equal(t, int64(1), top[2].UserID)
	assert.Equal(t, 3, top[2].Rank)

	assert.Len(t, l.Top(1), 1)
}

func TestStatsTotals(t *testing.T) {
	s := NewStats()

	s.RecordBet(GameDrop, settled(1, "1", "5.6"))
	s.RecordBet(GameDrop, settled(2, "1", "0.3"))
	s.RecordBet(GameDrop, settled(3, "2", "2"))

	got := s.Get(GameDrop)
	assert.Equal(t, int64(3), got.TotalBets)
	assert.Equal(t, int64(1), got.Wins)
	assert.Equal(t, int64(1), got.Losses)
	assert.Equal(t, int64(1), got.Pushes)
	assertDec(t, "4", got.TotalWagered)
	assertDec(t, "7.9", got.TotalPaidOut)
	assertDec(t, "-3.9", got.HouseProfit)
	assertDec(t, "1.975", got.RTP)
	assertDec(t, "5.6", got.BiggestMultiple)

	assert.Equal(t, int64(0), s.Get(GameDrift).TotalBets)
}
