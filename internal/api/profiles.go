package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/match-master/internal/models"
)

// handleCreateProfile handles POST /api/profile/create.
func (s *Server) handleCreateProfile(c *fiber.Ctx) error {
	var req models.NewProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	profile, err := s.svc.CreateProfile(c.Context(), req)
	if err != nil {
		return s.fail(c, err, "Profile not found")
	}

	s.logger.Info("Profile created", "profile_id", profile.ID, "name", profile.Name)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"profile": profile,
		"message": "Profile created successfully!",
	})
}

// handleListProfiles handles GET /api/profiles.
func (s *Server) handleListProfiles(c *fiber.Ctx) error {
	profiles, err := s.svc.ListProfiles(c.Context())
	if err != nil {
		return s.fail(c, err, "Profiles not found")
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"profiles": profiles,
		"count":    len(profiles),
	})
}

// handleGetProfile handles GET /api/profile/:id.
func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	profile, err := s.svc.GetProfile(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err, "Profile not found")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"profile": profile,
	})
}

// handleDeleteProfile handles DELETE /api/profile/:id. Deleting an unknown
// profile succeeds.
func (s *Server) handleDeleteProfile(c *fiber.Ctx) error {
	if err := s.svc.DeleteProfile(c.Context(), c.Params("id")); err != nil {
		return s.fail(c, err, "Profile not found")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile deleted successfully",
	})
}

// handleGenerateSamples handles POST /api/generate-samples.
func (s *Server) handleGenerateSamples(c *fiber.Ctx) error {
	var req models.GenerateSamplesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Count <= 0 {
		req.Count = 10
	}

	profiles, err := s.svc.GenerateSamples(c.Context(), req.Count)
	if err != nil {
		return s.fail(c, err, "Profiles not found")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"profiles": profiles,
		"count":    len(profiles),
	})
}
