package session

import (
	"github.com/ONUR213123232/PaketHane/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the read-only session endpoints. Mutations go
// through the tracker so they stay inside the per-courier lock.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/active", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := svc.Active(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"session": sess})
	})

	r.Get("/history", authMiddleware, func(c *fiber.Ctx) error {
		sessions, stats, err := svc.History(c.Context(), auth.UserID(c), c.QueryInt("limit", 30))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"sessions": sessions, "stats": stats})
	})
}
