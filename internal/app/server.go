package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bx-rounds/internal/audit"
	"bx-rounds/internal/cache"
	"bx-rounds/internal/casino"
	"bx-rounds/internal/chat"
	"bx-rounds/internal/config"
	"bx-rounds/internal/db"
	"bx-rounds/internal/event"
	"bx-rounds/internal/fairness"
	"bx-rounds/internal/jobs"
	"bx-rounds/internal/ledger"
	"bx-rounds/internal/logger"
	"bx-rounds/internal/monitoring"
	"bx-rounds/internal/security"
	"bx-rounds/internal/wallet"
	"bx-rounds/internal/ws"
)

type Server struct {
	app      *fiber.App
	cfg      *config.Config
	jobs     *jobs.Manager
	casino   *casino.Service
	database *sql.DB
	mirror   *cache.Mirror
}

func NewServer(cfg *config.Config) (*Server, error) {
	decimal.MarshalJSONWithoutQuotes = true

	bus := event.NewBus()
	monitoring.RegisterConsumers(bus)

	database, err := db.Init(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	archive := audit.New(database, cfg.AuditQueue)
	archive.Subscribe(bus)

	var mirror *cache.Mirror
	if cfg.RedisAddr != "" {
		mirror = cache.New(cfg.RedisAddr)
		mirror.Subscribe(bus)
	}

	gen, err := fairness.NewGenerator(
		fairness.WithRotateEvery(cfg.RotateEvery),
		fairness.WithObserver(fairObserver{bus: bus}),
	)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("fairness generator: %w", err)
	}

	ledgerService := ledger.New(
		ledger.WithStartingBalance(cfg.StartingBalance),
		ledger.WithJournal(busJournal{bus: bus}),
	)
	walletService := wallet.New(ledgerService)
	casinoService := casino.NewService(gen, ledgerService, bus)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(monitoring.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", monitoring.Handler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	for _, game := range []casino.Game{casino.GameDrop, casino.GameDrift} {
		name := strings.ToLower(string(game))

		hub := ws.NewHub(name, chat.NewRoom(cfg.ChatCapacity), cfg.SendBuffer)
		engine := casinoService.AddEngine(engineConfig(cfg, game), hub)
		hub.Bind(engine)

		app.Get("/ws/"+name, websocket.New(hub.Handler()))
	}

	lookups := []casino.SeedLookup{archive.Revealed}
	if mirror != nil {
		lookups = append(lookups, mirror.Seed)
	}

	api := app.Group("/api", security.APIKeyGuard(cfg.APIKey))
	casino.RegisterRoutes(api, casinoService, archive, lookups...)
	wallet.RegisterRoutes(api, walletService)

	admin := app.Group("/admin", security.AdminGuard(cfg.AdminToken))
	casino.RegisterAdminRoutes(admin, casinoService)
	wallet.RegisterAdminRoutes(admin, walletService)

	manager := jobs.New()
	manager.Register(archive)
	manager.Register(jobs.Func{Name: "engines", Run: casinoService.Run})

	return &Server{
		app:      app,
		cfg:      cfg,
		jobs:     manager,
		casino:   casinoService,
		database: database,
		mirror:   mirror,
	}, nil
}

func engineConfig(cfg *config.Config, game casino.Game) casino.Config {
	ec := casino.DefaultConfig(game)
	ec.Countdown = cfg.Countdown
	ec.UpdateInterval = cfg.UpdateInterval
	ec.Grace = cfg.Grace
	ec.ResultStagger = cfg.ResultStagger
	ec.TickInterval = cfg.TickInterval
	ec.Limits = casino.Limits{MaxBet: cfg.MaxBet}
	ec.Curve = cfg.Curve

	return ec
}

func (s *Server) App() *fiber.App { return s.app }

// Run serves HTTP and the background jobs until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if s.mirror != nil {
		if err := s.mirror.Ping(ctx); err != nil {
			logger.Log.Warn("fairness mirror unavailable", zap.Error(err))
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.jobs.Start(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Log.Info("listening", zap.String("port", s.cfg.Port))
		return s.app.Listen(":" + s.cfg.Port)
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.app.Shutdown()
	})

	err := g.Wait()

	s.Close()

	return err
}

func (s *Server) Close() {
	if s.mirror != nil {
		_ = s.mirror.Close()
	}

	_ = s.database.Close()
}
