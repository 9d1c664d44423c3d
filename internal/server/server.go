package server

import (
	"github.com/ONUR213123232/PaketHane/internal/audit"
	"github.com/ONUR213123232/PaketHane/internal/auth"
	"github.com/ONUR213123232/PaketHane/internal/config"
	"github.com/ONUR213123232/PaketHane/internal/courier"
	"github.com/ONUR213123232/PaketHane/internal/location"
	"github.com/ONUR213123232/PaketHane/internal/session"
	"github.com/ONUR213123232/PaketHane/internal/stats"
	"github.com/ONUR213123232/PaketHane/internal/stream"
	"github.com/ONUR213123232/PaketHane/internal/tracker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auditSvc := audit.NewService(s.DB)
	locationSvc := location.NewService(s.DB)
	sessionSvc := session.NewService(s.DB, s.Stream, auditSvc)
	coordinator := tracker.NewCoordinator(locationSvc, sessionSvc, s.Stream, auditSvc)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB, auditSvc))

	locationGroup := s.App.Group("/location")
	sessionGroup := s.App.Group("/session")
	deliveryGroup := s.App.Group("/delivery")
	tracker.RegisterRoutes(locationGroup, sessionGroup, deliveryGroup, coordinator, jwtMiddleware)
	location.RegisterRoutes(locationGroup, locationSvc, jwtMiddleware)
	session.RegisterRoutes(sessionGroup, sessionSvc, jwtMiddleware)

	courier.RegisterRoutes(s.App.Group("/courier"), courier.NewService(s.DB), jwtMiddleware)
	stats.RegisterRoutes(s.App.Group("/stats"), stats.NewService(s.DB, sessionSvc), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
