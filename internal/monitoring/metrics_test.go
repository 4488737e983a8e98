package monitoring

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx-rounds/internal/casino"
	"bx-rounds/internal/event"
	"bx-rounds/internal/ledger"
	"bx-rounds/internal/outcome"
)

func TestConsumersCountEvents(t *testing.T) {
	bus := event.NewBus()
	RegisterConsumers(bus)

	wins := testutil.ToFloat64(BetsSettled.WithLabelValues("DRIFT", "WIN"))
	rounds := testutil.ToFloat64(RoundsFinished.WithLabelValues("DRIFT"))
	debits := testutil.ToFloat64(LedgerEntries.WithLabelValues("debit"))

	bus.Publish(event.EventBetSettled, casino.Settlement{Game: casino.GameDrift, Bet: casino.Bet{
		Amount: decimal.NewFromInt(10),
		Payout: decimal.NewFromInt(15),
		Result: outcome.Win,
	}})

	crash := decimal.RequireFromString("1.5")
	bus.Publish(event.EventRoundFinished, casino.RoundSummary{Game: casino.GameDrift, CrashMultiplier: &crash})
	bus.Publish(event.EventLedgerEntry, ledger.Entry{Kind: ledger.KindDebit})

	assert.Equal(t, wins+1, testutil.ToFloat64(BetsSettled.WithLabelValues("DRIFT", "WIN")))
	assert.Equal(t, rounds+1, testutil.ToFloat64(RoundsFinished.WithLabelValues("DRIFT")))
	assert.Equal(t, debits+1, testutil.ToFloat64(LedgerEntries.WithLabelValues("debit")))
}

func TestMiddlewareCountsRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/api/stats/:game", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	before := testutil.ToFloat64(HttpRequests.WithLabelValues("GET", "/api/stats/:game"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/stats/drop", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	assert.Equal(t, before+1, testutil.ToFloat64(HttpRequests.WithLabelValues("GET", "/api/stats/:game")))
}
