package courier

import (
	"github.com/ONUR213123232/PaketHane/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/active", authMiddleware, func(c *fiber.Ctx) error {
		couriers, err := svc.Active(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"count": len(couriers), "couriers": couriers})
	})

	r.Get("/all", authMiddleware, auth.RequireAdmin(), func(c *fiber.Ctx) error {
		couriers, err := svc.All(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"count": len(couriers), "couriers": couriers})
	})
}
