package monitoring

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bx-rounds/internal/casino"
	"bx-rounds/internal/event"
	"bx-rounds/internal/ledger"
)

var (
	HttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint"},
	)

	LedgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_total",
			Help: "Total applied balance changes",
		},
		[]string{"kind"},
	)

	RoundsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rounds_finished_total",
			Help: "Total finished rounds",
		},
		[]string{"game"},
	)

	BetsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bets_settled_total",
			Help: "Total settled bets",
		},
		[]string{"game", "result"},
	)

	Wagered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagered_total",
			Help: "Total amount staked",
		},
		[]string{"game"},
	)

	PaidOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paid_out_total",
			Help: "Total amount paid to players",
		},
		[]string{"game"},
	)

	CrashMultiplier = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drift_crash_multiplier",
			Help:    "Distribution of DRIFT crash multipliers",
			Buckets: []float64{1, 1.2, 1.5, 2, 3, 5, 10, 50, 100, 1000},
		},
	)

	WSSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ws_sessions",
			Help: "Connected websocket sessions",
		},
		[]string{"game"},
	)

	WSDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_dropped_frames_total",
			Help: "Outbound frames dropped on full session queues",
		},
		[]string{"game"},
	)

	Rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "command_rejections_total",
			Help: "Rejected client commands by code",
		},
		[]string{"game", "code"},
	)
)

func Init() {
	prometheus.MustRegister(HttpRequests)
	prometheus.MustRegister(LedgerEntries)
	prometheus.MustRegister(RoundsFinished)
	prometheus.MustRegister(BetsSettled)
	prometheus.MustRegister(Wagered)
	prometheus.MustRegister(PaidOut)
	prometheus.MustRegister(CrashMultiplier)
	prometheus.MustRegister(WSSessions)
	prometheus.MustRegister(WSDropped)
	prometheus.MustRegister(Rejections)
}

// RegisterConsumers counts engine and ledger events.
func RegisterConsumers(bus *event.Bus) {

	bus.Subscribe(event.EventBetSettled, func(payload interface{}) {

		s := payload.(casino.Settlement)
		game := string(s.Game)

		BetsSettled.WithLabelValues(game, string(s.Bet.Result)).Inc()
		Wagered.WithLabelValues(game).Add(s.Bet.Amount.InexactFloat64())
		PaidOut.WithLabelValues(game).Add(s.Bet.Payout.InexactFloat64())
	})

	bus.Subscribe(event.EventRoundFinished, func(payload interface{}) {

		sum := payload.(casino.RoundSummary)

		RoundsFinished.WithLabelValues(string(sum.Game)).Inc()

		if sum.CrashMultiplier != nil {
			CrashMultiplier.Observe(sum.CrashMultiplier.InexactFloat64())
		}
	})

	bus.Subscribe(event.EventLedgerEntry, func(payload interface{}) {
		LedgerEntries.WithLabelValues(string(payload.(ledger.Entry).Kind)).Inc()
	})
}

// Middleware counts requests by route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		HttpRequests.WithLabelValues(c.Method(), c.Route().Path).Inc()

		return err
	}
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
