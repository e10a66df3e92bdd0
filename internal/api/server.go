package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/illegalcall/match-master/internal/config"
	"github.com/illegalcall/match-master/internal/models"
	"github.com/illegalcall/match-master/internal/service"
	"github.com/illegalcall/match-master/internal/store"
)

const version = "1.0.0"

// Server is the HTTP surface over the match service. Routing, validation and
// CORS live here; everything with invariants lives below in the service and
// store layers.
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	svc    *service.MatchService
	stats  *service.StatsService
	logger *slog.Logger
}

func NewServer(cfg *config.Config, svc *service.MatchService, stats *service.StatsService, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New()

	// Middleware
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status}\n",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.MaxRequests,
		Expiration: cfg.Server.RequestTimeout,
	}))

	server := &Server{
		app:    app,
		cfg:    cfg,
		svc:    svc,
		stats:  stats,
		logger: log,
	}
	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	api.Post("/profile/create", s.handleCreateProfile)
	api.Get("/profiles", s.handleListProfiles)
	api.Get("/profile/:id", s.handleGetProfile)
	api.Delete("/profile/:id", s.handleDeleteProfile)

	api.Post("/match/find", s.handleFindMatches)
	api.Post("/match/like", s.handleLike)
	api.Post("/match/pass", s.handlePass)
	api.Get("/match/:id", s.handleGetMatch)
	api.Get("/matches/:profile_id", s.handleMatchesForProfile)
	api.Get("/compatibility/:id", s.handleCompatibilityReport)

	api.Post("/generate-samples", s.handleGenerateSamples)
	api.Get("/stats", cache.New(cache.Config{
		Expiration:   s.cfg.Server.CacheExpiration,
		CacheControl: true,
	}), s.handleStats)
	api.Get("/health", s.handleHealth)
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version,
		"message":   "Server is running",
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.stats.Cached(c.Context())
	if err != nil {
		s.logger.Error("Failed to compute stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}

// fail maps service errors onto HTTP responses: validation problems are 400,
// missing records are 404 with the handler's message, anything else is a 500.
func (s *Server) fail(c *fiber.Ctx, err error, notFoundMsg string) error {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": vErr.Error()})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFoundMsg})
	default:
		s.logger.Error("Request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
