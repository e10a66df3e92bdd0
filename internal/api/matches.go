package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/match-master/internal/models"
)

// handleFindMatches handles POST /api/match/find.
func (s *Server) handleFindMatches(c *fiber.Ctx) error {
	var req models.FindMatchesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.ProfileID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "profile_id is required",
		})
	}
	if req.MaxResults <= 0 {
		req.MaxResults = s.cfg.Matching.MaxResults
	}

	candidates, err := s.svc.FindMatches(c.Context(), req.ProfileID, req.MaxResults)
	if err != nil {
		return s.fail(c, err, "Profile not found")
	}

	results := make([]fiber.Map, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, fiber.Map{
			"profile":             cand.Profile,
			"compatibility_score": cand.Score,
			"reasons":             cand.Reasons,
			"match_type":          cand.MatchType,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"matches": results,
		"count":   len(results),
	})
}

// handleLike handles POST /api/match/like.
func (s *Server) handleLike(c *fiber.Ctx) error {
	var req models.LikeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.LikerID == "" || req.LikedID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "liker_id and liked_id are required",
		})
	}

	match, matched, err := s.svc.Like(c.Context(), req.LikerID, req.LikedID)
	if err != nil {
		return s.fail(c, err, "One or both profiles not found")
	}

	if matched {
		return c.JSON(fiber.Map{
			"success":  true,
			"is_match": true,
			"match":    match,
			"message":  "It's a match! 🎉",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"is_match": false,
		"message":  "Profile liked successfully",
	})
}

// handlePass handles POST /api/match/pass.
func (s *Server) handlePass(c *fiber.Ctx) error {
	var req models.PassRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.PasserID == "" || req.PassedID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "passer_id and passed_id are required",
		})
	}

	if err := s.svc.Pass(c.Context(), req.PasserID, req.PassedID); err != nil {
		return s.fail(c, err, "Profile not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile passed",
	})
}

// handleGetMatch handles GET /api/match/:id, returning the match and both
// participant snapshots.
func (s *Server) handleGetMatch(c *fiber.Ctx) error {
	match, err := s.svc.GetMatch(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err, "Match not found")
	}

	resp := fiber.Map{
		"success": true,
		"match":   match,
	}
	if p1, err := s.svc.GetProfile(c.Context(), match.Profile1ID); err == nil {
		resp["profile1"] = p1
	}
	if p2, err := s.svc.GetProfile(c.Context(), match.Profile2ID); err == nil {
		resp["profile2"] = p2
	}
	return c.JSON(resp)
}

// handleMatchesForProfile handles GET /api/matches/:profile_id.
func (s *Server) handleMatchesForProfile(c *fiber.Ctx) error {
	details, err := s.svc.MatchesForProfile(c.Context(), c.Params("profile_id"))
	if err != nil {
		return s.fail(c, err, "Profile not found")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"matches": details,
		"count":   len(details),
	})
}

// handleCompatibilityReport handles GET /api/compatibility/:id. The report is
// generated on first request and cached on the match afterwards.
func (s *Server) handleCompatibilityReport(c *fiber.Ctx) error {
	report, err := s.svc.CompatibilityReport(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err, "Match not found")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}
