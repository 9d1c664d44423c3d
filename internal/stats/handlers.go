package stats

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/current-session/:courierID", authMiddleware, func(c *fiber.Ctx) error {
		snapshot, err := svc.CurrentSession(c.Context(), c.Params("courierID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(snapshot)
	})

	r.Get("/user/:courierID", authMiddleware, func(c *fiber.Ctx) error {
		summary, err := svc.ForPeriod(c.Context(), c.Params("courierID"), c.Query("period", "daily"))
		if err != nil {
			if errors.Is(err, ErrUnknownPeriod) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(summary)
	})
}
