package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/aide/pkg/feed"
	"github.com/papercomputeco/aide/pkg/ingest"
	"github.com/papercomputeco/aide/pkg/memory"
)

// LearnRequest is the body of POST /v1/learn. Either URL or URLs is set.
type LearnRequest struct {
	URL  string   `json:"url"`
	URLs []string `json:"urls,omitempty"`
}

// LearnResponse reports the outcome of learning one feed.
type LearnResponse struct {
	URL           string         `json:"url"`
	Realm         *RealmResponse `json:"realm,omitempty"`
	NewMemories   int            `json:"new_memories"`
	Skipped       int            `json:"skipped"`
	IndexFailures int            `json:"index_failures"`
	Error         string         `json:"error,omitempty"`
}

func newLearnResponse(url string, res *ingest.Result, err error) LearnResponse {
	out := LearnResponse{URL: url}
	if res != nil {
		if res.Realm != nil {
			r := newRealmResponse(res.Realm)
			out.Realm = &r
		}
		out.NewMemories = res.NewMemories
		out.Skipped = res.Skipped
		out.IndexFailures = res.IndexFailures
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// learnStatus maps an ingestion error to an HTTP status.
func learnStatus(err error) int {
	var fetchErr *feed.FetchError
	var parseErr *feed.ParseError
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.As(err, &fetchErr):
		return fiber.StatusBadGateway
	case errors.As(err, &parseErr), errors.Is(err, memory.ErrInvariantViolation):
		return fiber.StatusUnprocessableEntity
	case memory.IsCanceled(err):
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// handleLearn learns one feed, or several through the worker pool.
func (s *Server) handleLearn(c *fiber.Ctx) error {
	var req LearnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if len(req.URLs) > 0 {
		urls := append([]string{req.URL}, req.URLs...)
		outcomes := s.services.Pool.Run(c.Context(), urls)

		out := make([]LearnResponse, 0, len(outcomes))
		for _, o := range outcomes {
			out = append(out, newLearnResponse(o.URL, o.Result, o.Err))
		}
		return c.JSON(map[string]any{
			"count":   len(out),
			"results": out,
		})
	}

	url := strings.TrimSpace(req.URL)
	if url == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "url is required"})
	}

	res, err := s.services.Engine.Ingest(c.Context(), url)
	if err != nil {
		s.logger.Warn("learn request failed", "url", url, "error", err)
	}
	return c.Status(learnStatus(err)).JSON(newLearnResponse(url, res, err))
}

// handleReindex republishes every stored memory.
func (s *Server) handleReindex(c *fiber.Ctx) error {
	res, err := s.services.Reindex.ReindexAll(c.Context())
	if err != nil {
		s.logger.Error("reindex failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.JSON(map[string]any{
		"events":   res.Events,
		"failures": res.Failures,
	})
}
