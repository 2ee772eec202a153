package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/aide/pkg/search"
)

// handleSearch handles GET /v1/search requests.
// Query parameters:
//   - term (required): the search term
//   - type (optional): text or semantic, defaults to search.strategy
//   - realm (optional): realm name filter
func (s *Server) handleSearch(c *fiber.Ctx) error {
	term := strings.TrimSpace(c.Query("term"))
	if term == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "term parameter is required",
		})
	}

	fallback, err := search.ParseStrategy(s.services.Config.Search.Strategy, search.StrategySemantic)
	if err != nil {
		fallback = search.StrategySemantic
	}
	strategy, err := search.ParseStrategy(c.Query("type"), fallback)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	res, err := s.services.Searcher.Search(c.Context(), search.Query{
		Term:     term,
		Strategy: strategy,
		Realm:    c.Query("realm"),
	})
	if err != nil {
		s.logger.Error("search failed", "term", term, "strategy", strategy, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	if res.Outcome == search.OutcomeRealmNotFound {
		return c.Status(fiber.StatusNotFound).JSON(res)
	}
	return c.JSON(res)
}
