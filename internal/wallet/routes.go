package wallet

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func RegisterRoutes(app fiber.Router, service *Service) {

	app.Get("/wallet/balance/:uid", func(c *fiber.Ctx) error {
		uid, err := c.ParamsInt("uid")
		if err != nil || uid <= 0 {
			return c.Status(400).JSON(fiber.Map{"error": "invalid uid"})
		}
		return c.JSON(fiber.Map{"uid": uid, "balance": service.Balance(int64(uid))})
	})
}

// RegisterAdminRoutes mounts balance changes; app must already be guarded.
func RegisterAdminRoutes(app fiber.Router, service *Service) {

	app.Post("/wallet/credit", func(c *fiber.Ctx) error {
		type Req struct {
			UID    int64           `json:"uid"`
			Amount decimal.Decimal `json:"amount"`
		}
		var r Req
		if err := c.BodyParser(&r); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		after, err := service.Credit(r.UID, r.Amount)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "credited", "balance": after})
	})
}
