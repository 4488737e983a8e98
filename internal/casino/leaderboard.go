package casino

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"bx-rounds/internal/outcome"
)

type LeaderboardEntry struct {
	Rank       int             `json:"rank"`
	UserID     int64           `json:"userId"`
	Wagered    decimal.Decimal `json:"wagered"`
	Profit     decimal.Decimal `json:"profit"`
	Games      int64           `json:"games"`
	Wins       int64           `json:"wins"`
	BiggestWin decimal.Decimal `json:"biggestWin"`
	WinRate    decimal.Decimal `json:"winRate"`
}

type Leaderboard struct {
	data map[int64]*LeaderboardEntry
	mu   sync.Mutex
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		data: make(map[int64]*LeaderboardEntry),
	}
}

func (l *Leaderboard) Record(b Bet) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.data[b.UserID]
	if !ok {
		e = &LeaderboardEntry{UserID: b.UserID}
		l.data[b.UserID] = e
	}

	profit := b.Payout.Sub(b.Amount)

	e.Games++
	e.Wagered = e.Wagered.Add(b.Amount)
	e.Profit = e.Profit.Add(profit)

	if b.Result == outcome.Win {
		e.Wins++

		if profit.GreaterThan(e.BiggestWin) {
			e.BiggestWin = profit
		}
	}
}

// Top ranks players by profit, breaking ties by wagered then user id.
func (l *Leaderboard) Top(n int) []LeaderboardEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]LeaderboardEntry, 0, len(l.data))

	for _, e := range l.data {
		entry := *e
		if entry.Games > 0 {
			entry.WinRate = decimal.NewFromInt(entry.Wins).Div(decimal.NewFromInt(entry.Games)).Round(4)
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Profit.Cmp(entries[j].Profit); c != 0 {
			return c > 0
		}

		if c := entries[i].Wagered.Cmp(entries[j].Wagered); c != 0 {
			return c > 0
		}

		return entries[i].UserID < entries[j].UserID
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}
