package tracker

import (
	"errors"

	"github.com/ONUR213123232/PaketHane/internal/auth"
	"github.com/ONUR213123232/PaketHane/internal/location"
	"github.com/ONUR213123232/PaketHane/internal/session"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts every mutating endpoint of the tracking pipeline so
// they all pass through the coordinator's per-courier serialization.
func RegisterRoutes(locationGroup, sessionGroup, deliveryGroup fiber.Router, co *Coordinator, authMiddleware fiber.Handler) {
	locationGroup.Post("/update", authMiddleware, func(c *fiber.Ctx) error {
		var raw location.RawFix
		if err := c.BodyParser(&raw); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		result, err := co.Ingest(c.Context(), caller(c), raw)
		if err != nil {
			return mapTrackingError(err)
		}
		return c.JSON(result)
	})

	sessionGroup.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := co.StartSession(c.Context(), caller(c))
		if err != nil {
			return mapTrackingError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(sess)
	})

	sessionGroup.Post("/break/start", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := co.StartBreak(c.Context(), caller(c))
		if err != nil {
			return mapTrackingError(err)
		}
		return c.JSON(sess)
	})

	sessionGroup.Post("/break/end", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := co.EndBreak(c.Context(), caller(c))
		if err != nil {
			return mapTrackingError(err)
		}
		return c.JSON(sess)
	})

	sessionGroup.Post("/end", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			TotalDistanceKm *float64 `json:"total_distance_km"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
			}
		}
		sess, err := co.EndSession(c.Context(), caller(c), req.TotalDistanceKm)
		if err != nil {
			return mapTrackingError(err)
		}
		return c.JSON(sess)
	})

	deliveryGroup.Post("/complete", authMiddleware, func(c *fiber.Ctx) error {
		sess, err := co.CompleteDelivery(c.Context(), caller(c))
		if err != nil {
			return mapTrackingError(err)
		}
		return c.JSON(fiber.Map{"delivery_count": sess.DeliveryCount})
	})
}

func caller(c *fiber.Ctx) session.Courier {
	return session.Courier{ID: auth.UserID(c), Name: auth.UserName(c)}
}

func mapTrackingError(err error) error {
	switch {
	case errors.Is(err, location.ErrInvalidFix):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrAlreadyActive),
		errors.Is(err, session.ErrNoActiveSession),
		errors.Is(err, session.ErrNoOpenBreak):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, session.ErrConflict):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
