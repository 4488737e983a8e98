package app

import (
	"time"

	"bx-rounds/internal/event"
	"bx-rounds/internal/fairness"
	"bx-rounds/internal/ledger"
)

// fairObserver republishes generator notifications on the bus.
type fairObserver struct {
	bus *event.Bus
}

func (o fairObserver) Committed(hash string, at time.Time) {
	o.bus.Publish(event.EventSeedCommitted, fairness.Commitment{ServerSeedHash: hash, CommittedAt: at})
}

func (o fairObserver) Revealed(r fairness.Revealed) {
	o.bus.Publish(event.EventSeedRevealed, r)
}

// busJournal republishes ledger entries on the bus.
type busJournal struct {
	bus *event.Bus
}

func (j busJournal) Record(e ledger.Entry) {
	j.bus.Publish(event.EventLedgerEntry, e)
}
