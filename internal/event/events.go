package event

const (
	EventBetSettled    = "casino.bet_settled"
	EventRoundFinished = "casino.round_finished"
	EventSeedCommitted = "fair.committed"
	EventSeedRevealed  = "fair.revealed"
	EventLedgerEntry   = "ledger.entry"
)
