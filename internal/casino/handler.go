package casino

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"bx-rounds/internal/fairness"
	"bx-rounds/internal/outcome"
)

// BetArchive serves settled bets from durable storage.
type BetArchive interface {
	RecentBets(ctx context.Context, userID int64, limit int) ([]Bet, error)
}

// SeedLookup finds a revealed server seed by its hash in storage outside the
// generator. It returns fairness.ErrNotRevealed when it has no record.
type SeedLookup func(ctx context.Context, hash string) (string, error)

const maxListLimit = 100

func limitParam(c *fiber.Ctx) int {
	n := c.QueryInt("limit", 20)
	if n <= 0 || n > maxListLimit {
		return maxListLimit
	}

	return n
}

// revealSeed asks the generator first, then each lookup in order. A stored
// seed that does not hash to hash is ignored.
func revealSeed(ctx context.Context, gen *fairness.Generator, hash string, lookups []SeedLookup) (string, error) {
	if seed, err := gen.Reveal(hash); err == nil {
		return seed, nil
	}

	var lastErr error

	for _, lookup := range lookups {
		seed, err := lookup(ctx, hash)

		switch {
		case err == nil && fairness.HashSeed(seed) == hash:
			return seed, nil
		case err != nil && !errors.Is(err, fairness.ErrNotRevealed):
			lastErr = err
		}
	}

	if lastErr != nil {
		return "", lastErr
	}

	return "", fairness.ErrNotRevealed
}

func RegisterRoutes(r fiber.Router, service *Service, archive BetArchive, lookups ...SeedLookup) {

	r.Get("/fair/current", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"serverSeedHash": service.gen.CommitmentHash(),
		})
	})

	r.Get("/fair/revealed", func(c *fiber.Ctx) error {
		return c.JSON(service.gen.Revealed(limitParam(c)))
	})

	r.Get("/fair/reveal/:hash", func(c *fiber.Ctx) error {

		hash := c.Params("hash")

		seed, err := revealSeed(c.UserContext(), service.gen, hash, lookups)
		if errors.Is(err, fairness.ErrNotRevealed) {
			return c.Status(404).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		if err != nil {
			return c.Status(500).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"serverSeedHash": hash,
			"serverSeed":     seed,
		})
	})

	r.Get("/fair/verify/drop", func(c *fiber.Ctx) error {

		seed := c.Query("serverSeed")
		clientSeed := c.Query("clientSeed")

		nonce, err := strconv.ParseUint(c.Query("nonce"), 10, 64)
		if seed == "" || clientSeed == "" || err != nil {
			return c.Status(400).JSON(fiber.Map{
				"error": "serverSeed, clientSeed and nonce are required",
			})
		}

		risk, err := outcome.ParseRisk(c.Query("risk", string(outcome.RiskEasy)))
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		res, err := outcome.ResolvePath(fairness.Seed(seed), clientSeed, nonce, risk, c.QueryInt("rows", outcome.DefaultRows))
		if err != nil {
			return c.Status(400).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"serverSeedHash": fairness.HashSeed(seed),
			"path":           res.Path,
			"bin":            res.Bin,
			"multiplier":     res.Multiplier,
		})
	})

	r.Get("/fair/verify/drift", func(c *fiber.Ctx) error {

		seed := c.Query("serverSeed")
		roundID := c.Query("roundId")

		roundNonce, err := strconv.ParseUint(c.Query("roundNonce"), 10, 64)
		if seed == "" || roundID == "" || err != nil {
			return c.Status(400).JSON(fiber.Map{
				"error": "serverSeed, roundId and roundNonce are required",
			})
		}

		curve := outcome.DefaultCurve()
		if e, ok := service.Engine(GameDrift); ok {
			curve = e.cfg.Curve
		}

		return c.JSON(fiber.Map{
			"serverSeedHash":  fairness.HashSeed(seed),
			"crashMultiplier": curve.Target(fairness.Seed(seed), roundID, roundNonce),
		})
	})

	r.Get("/rounds/:game", func(c *fiber.Ctx) error {

		e, ok := service.Engine(Game(strings.ToUpper(c.Params("game"))))
		if !ok {
			return c.SendStatus(404)
		}

		return c.JSON(e.Snapshot())
	})

	r.Get("/stats/:game", func(c *fiber.Ctx) error {

		g := Game(strings.ToUpper(c.Params("game")))
		if _, ok := service.Engine(g); !ok {
			return c.SendStatus(404)
		}

		return c.JSON(service.Stats.Get(g))
	})

	r.Get("/leaderboard", func(c *fiber.Ctx) error {
		return c.JSON(service.Leaderboard.Top(limitParam(c)))
	})

	r.Get("/history/drift", func(c *fiber.Ctx) error {
		return c.JSON(service.History.Last(limitParam(c)))
	})

	r.Get("/history/bets/:uid", func(c *fiber.Ctx) error {

		uid, err := c.ParamsInt("uid")
		if err != nil || uid <= 0 {
			return c.Status(400).JSON(fiber.Map{
				"error": "invalid uid",
			})
		}

		if archive == nil {
			return c.JSON([]Bet{})
		}

		bets, err := archive.RecentBets(c.UserContext(), int64(uid), limitParam(c))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(bets)
	})
}

// RegisterAdminRoutes mounts operator actions; r must already be guarded.
func RegisterAdminRoutes(r fiber.Router, service *Service) {

	r.Post("/fair/rotate", func(c *fiber.Ctx) error {

		hash, err := service.gen.Rotate()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"serverSeedHash": hash,
		})
	})
}
