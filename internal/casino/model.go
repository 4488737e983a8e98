package casino

import (
	"time"

	"github.com/shopspring/decimal"

	"bx-rounds/internal/fairness"
	"bx-rounds/internal/outcome"
)

type Game string

const (
	GameDrop  Game = "DROP"
	GameDrift Game = "DRIFT"
)

type State string

const (
	StateIdle      State = "IDLE"
	StateCountdown State = "COUNTDOWN"
	StateRunning   State = "RUNNING"
	StateFinished  State = "FINISHED"
)

// JoinRequest is the join_round payload.
type JoinRequest struct {
	UserID      int64           `json:"userId"`
	Bet         decimal.Decimal `json:"bet"`
	ClientSeed  string          `json:"clientSeed"`
	Risk        string          `json:"risk,omitempty"`
	Rows        int             `json:"rows,omitempty"`
	AutoCashout decimal.Decimal `json:"autoCashout"`
}

type CashoutRequest struct {
	UserID int64 `json:"userId"`
}

type Bet struct {
	ID             string          `json:"betId"`
	RoundID        string          `json:"roundId"`
	UserID         int64           `json:"userId"`
	Amount         decimal.Decimal `json:"bet"`
	ClientSeed     string          `json:"clientSeed"`
	Nonce          uint64          `json:"nonce"`
	ServerSeedHash string          `json:"serverSeedHash"`
	CreatedAt      time.Time       `json:"createdAt"`

	// DROP
	Risk       outcome.Risk    `json:"risk,omitempty"`
	Rows       int             `json:"rows,omitempty"`
	Path       []int           `json:"path,omitempty"`
	Bin        int             `json:"bin"`
	Multiplier decimal.Decimal `json:"multiplier"`

	// DRIFT
	AutoCashout       decimal.Decimal  `json:"autoCashout"`
	CashoutMultiplier *decimal.Decimal `json:"cashoutMultiplier,omitempty"`
	CashedOutAtMs     int64            `json:"cashedOutAtMs,omitempty"`

	Payout       decimal.Decimal `json:"payout"`
	Result       outcome.Result  `json:"result,omitempty"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	SettledAt    time.Time       `json:"settledAt"`

	settled bool
}

func (b *Bet) Settled() bool { return b.settled }

// Round is owned by the engine goroutine; nothing outside it may touch one.
type Round struct {
	ID                string
	Game              Game
	State             State
	CountdownDeadline time.Time
	StartedAt         time.Time
	FinishedAt        time.Time

	bets  map[int64]*Bet
	order []*Bet

	epoch      *fairness.Epoch
	roundNonce uint64
	released   bool

	driftTarget decimal.Decimal
	multiplier  decimal.Decimal
	cursor      int
}

func (r *Round) Bets() []*Bet { return r.order }

// Settlement is published on the bus once per settled bet.
type Settlement struct {
	Game Game
	Bet  Bet
}

// RoundSummary is published on the bus when a round finishes.
type RoundSummary struct {
	Game            Game             `json:"game"`
	RoundID         string           `json:"roundId"`
	Players         int              `json:"players"`
	StartedAt       time.Time        `json:"startedAt"`
	FinishedAt      time.Time        `json:"finishedAt"`
	ServerSeedHash  string           `json:"serverSeedHash"`
	RoundNonce      uint64           `json:"roundNonce"`
	CrashMultiplier *decimal.Decimal `json:"crashMultiplier,omitempty"`
	Wagered         decimal.Decimal  `json:"wagered"`
	PaidOut         decimal.Decimal  `json:"paidOut"`
}

// Outbound event names.
const (
	EvRoundUpdate   = "round_update"
	EvJoined        = "joined"
	EvRoundStarted  = "round_started"
	EvYourResult    = "your_result"
	EvCashedOut     = "cashed_out"
	EvCrashed       = "crashed"
	EvRoundFinished = "round_finished"
	EvError         = "error"
)

type RoundUpdate struct {
	Game           Game             `json:"game"`
	State          State            `json:"state"`
	RoundID        string           `json:"roundId"`
	Players        int              `json:"players"`
	TimeLeftMs     int64            `json:"timeLeftMs"`
	Multiplier     *decimal.Decimal `json:"multiplier,omitempty"`
	ServerSeedHash string           `json:"serverSeedHash"`

	deadline time.Time
}

type JoinAck struct {
	RoundID        string `json:"roundId"`
	UserID         int64  `json:"userId"`
	BetID          string `json:"betId"`
	Nonce          uint64 `json:"nonce"`
	ServerSeedHash string `json:"serverSeedHash"`
}

type RoundStarted struct {
	RoundID       string `json:"roundId"`
	LockedPlayers int    `json:"lockedPlayers"`
	StartedAt     int64  `json:"startedAt"`
}

type Proof struct {
	ServerSeedHash string `json:"serverSeedHash"`
	ClientSeed     string `json:"clientSeed,omitempty"`
	Nonce          uint64 `json:"nonce"`
}

type BetResult struct {
	UserID       int64           `json:"userId"`
	BetID        string          `json:"betId"`
	RoundID      string          `json:"roundId"`
	Path         []int           `json:"path"`
	Bin          int             `json:"bin"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	Payout       decimal.Decimal `json:"payout"`
	Result       outcome.Result  `json:"result"`
	Proof        Proof           `json:"proof"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type CashoutAck struct {
	UserID       int64           `json:"userId"`
	AtMultiplier decimal.Decimal `json:"atMultiplier"`
	Payout       decimal.Decimal `json:"payout"`
	AtMs         int64           `json:"atMs"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
}

type Crashed struct {
	RoundID         string          `json:"roundId"`
	CrashMultiplier decimal.Decimal `json:"crashMultiplier"`
	Proof           Proof           `json:"proof"`
}

type RoundFinished struct {
	RoundID    string `json:"roundId"`
	DurationMs int64  `json:"durationMs"`
}

type ErrorEvent struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}
