package location

import (
	"time"

	"github.com/ONUR213123232/PaketHane/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/last/:courierID?", authMiddleware, func(c *fiber.Ctx) error {
		courierID := targetCourier(c)
		if courierID == "" {
			return fiber.NewError(fiber.StatusForbidden, "not allowed to view this courier")
		}

		fix, err := svc.Last(c.Context(), courierID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if fix == nil {
			return fiber.NewError(fiber.StatusNotFound, "no location recorded")
		}
		return c.JSON(fix)
	})

	r.Get("/history/:courierID?", authMiddleware, func(c *fiber.Ctx) error {
		courierID := targetCourier(c)
		if courierID == "" {
			return fiber.NewError(fiber.StatusForbidden, "not allowed to view this courier")
		}

		q := HistoryQuery{
			CourierID: courierID,
			Limit:     c.QueryInt("limit", 100),
		}
		if v := c.Query("start"); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "start must be RFC3339")
			}
			q.Start = ts
		}
		if v := c.Query("end"); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "end must be RFC3339")
			}
			q.End = ts
		}

		fixes, err := svc.History(c.Context(), q)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"count": len(fixes), "locations": fixes})
	})
}

// targetCourier resolves the courier a read applies to. Couriers may only
// view themselves; admins may view anyone.
func targetCourier(c *fiber.Ctx) string {
	requested := c.Params("courierID")
	callerID := auth.UserID(c)
	if requested == "" || requested == callerID {
		return callerID
	}
	if auth.UserRole(c) == auth.RoleAdmin {
		return requested
	}
	return ""
}
