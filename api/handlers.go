package api

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/storage"
)

// RealmResponse describes one realm.
type RealmResponse struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemoryResponse describes one memory.
type MemoryResponse struct {
	ID            int64     `json:"id"`
	RealmID       int64     `json:"realm_id"`
	Key           string    `json:"key"`
	Title         string    `json:"title"`
	Content       string    `json:"content,omitempty"`
	Link          string    `json:"link,omitempty"`
	EnclosureLink string    `json:"enclosure_link,omitempty"`
	ImageLink     string    `json:"image_link,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newRealmResponse(r *memory.Realm) RealmResponse {
	return RealmResponse{
		ID:          r.ID(),
		Key:         r.Key,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

func newMemoryResponse(m *memory.Memory) MemoryResponse {
	return MemoryResponse{
		ID:            m.ID(),
		RealmID:       m.RealmID,
		Key:           m.Key,
		Title:         m.Title,
		Content:       m.Content,
		Link:          m.Link,
		EnclosureLink: m.EnclosureLink,
		ImageLink:     m.ImageLink,
		CreatedAt:     m.CreatedAt,
	}
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListRealms returns every realm ordered by name.
func (s *Server) handleListRealms(c *fiber.Ctx) error {
	realms, err := s.services.Store.AllRealms(c.Context())
	if err != nil {
		s.logger.Error("failed to list realms", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list realms"})
	}

	slices.SortStableFunc(realms, func(a, b *memory.Realm) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	out := make([]RealmResponse, 0, len(realms))
	for _, r := range realms {
		out = append(out, newRealmResponse(r))
	}

	return c.JSON(map[string]any{
		"count":  len(out),
		"realms": out,
	})
}

// handleListMemories returns the memories of one realm in identity order.
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "realm id must be a positive integer"})
	}

	ctx := c.Context()
	realm, err := s.services.Store.GetRealm(ctx, id)
	if storage.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "realm not found"})
	}
	if err != nil {
		s.logger.Error("failed to load realm", "realm_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load realm"})
	}

	memories, err := s.services.Store.AllMemoriesForRealm(ctx, id)
	if err != nil {
		s.logger.Error("failed to list memories", "realm_id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list memories"})
	}

	out := make([]MemoryResponse, 0, len(memories))
	for _, m := range memories {
		out = append(out, newMemoryResponse(m))
	}

	return c.JSON(map[string]any{
		"realm":    newRealmResponse(realm),
		"count":    len(out),
		"memories": out,
	})
}

// handleStats returns realm, memory and vector record counts.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.services.Stats(c.Context())
	if err != nil {
		s.logger.Error("failed to compute stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to compute stats"})
	}
	return c.JSON(stats)
}
