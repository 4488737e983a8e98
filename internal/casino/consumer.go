package casino

import (
	"bx-rounds/internal/event"
	"bx-rounds/internal/ring"
)

// RegisterConsumers feeds the read models from engine events.
func RegisterConsumers(bus *event.Bus, stats *Stats, board *Leaderboard, history *ring.Buffer[RoundSummary]) {

	bus.Subscribe(event.EventBetSettled, func(payload interface{}) {

		s := payload.(Settlement)

		stats.RecordBet(s.Game, s.Bet)
		board.Record(s.Bet)
	})

	bus.Subscribe(event.EventRoundFinished, func(payload interface{}) {

		sum := payload.(RoundSummary)

		stats.RecordRound(sum)

		if sum.Game == GameDrift {
			history.Push(sum)
		}
	})
}
