package casino

import (
	"sync"

	"github.com/shopspring/decimal"

	"bx-rounds/internal/outcome"
)

// GameStats are running totals for one game since process start.
type GameStats struct {
	Game            Game             `json:"game"`
	Rounds          int64            `json:"rounds"`
	TotalBets       int64            `json:"totalBets"`
	TotalWagered    decimal.Decimal  `json:"totalWagered"`
	TotalPaidOut    decimal.Decimal  `json:"totalPaidOut"`
	HouseProfit     decimal.Decimal  `json:"houseProfit"`
	RTP             decimal.Decimal  `json:"rtp"`
	Wins            int64            `json:"wins"`
	Losses          int64            `json:"losses"`
	Pushes          int64            `json:"pushes"`
	WinRate         decimal.Decimal  `json:"winRate"`
	LastCrashAt     *decimal.Decimal `json:"lastCrashMultiplier,omitempty"`
	BiggestMultiple decimal.Decimal  `json:"biggestMultiplier"`
}

type Stats struct {
	mu    sync.Mutex
	games map[Game]*GameStats
}

func NewStats() *Stats {
	return &Stats{games: make(map[Game]*GameStats)}
}

func (s *Stats) gameLocked(g Game) *GameStats {
	gs, ok := s.games[g]
	if !ok {
		gs = &GameStats{Game: g}
		s.games[g] = gs
	}

	return gs
}

func (s *Stats) RecordBet(g Game, b Bet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs := s.gameLocked(g)
	gs.TotalBets++
	gs.TotalWagered = gs.TotalWagered.Add(b.Amount)
	gs.TotalPaidOut = gs.TotalPaidOut.Add(b.Payout)

	switch b.Result {
	case outcome.Win:
		gs.Wins++
	case outcome.Push:
		gs.Pushes++
	default:
		gs.Losses++
	}

	if b.Multiplier.GreaterThan(gs.BiggestMultiple) {
		gs.BiggestMultiple = b.Multiplier
	}
}

func (s *Stats) RecordRound(sum RoundSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gs := s.gameLocked(sum.Game)
	gs.Rounds++

	if sum.CrashMultiplier != nil {
		at := *sum.CrashMultiplier
		gs.LastCrashAt = &at
	}
}

// Get returns a copy of the totals for g with derived ratios filled in.
func (s *Stats) Get(g Game) GameStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *s.gameLocked(g)
	out.HouseProfit = out.TotalWagered.Sub(out.TotalPaidOut)

	if out.TotalWagered.IsPositive() {
		out.RTP = out.TotalPaidOut.Div(out.TotalWagered).Round(4)
	}

	if out.TotalBets > 0 {
		out.WinRate = decimal.NewFromInt(out.Wins).Div(decimal.NewFromInt(out.TotalBets)).Round(4)
	}

	return out
}
