package api

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/aide/api/mcp"
	"github.com/papercomputeco/aide/pkg/aide"
	"github.com/papercomputeco/aide/pkg/eventbus"
	"github.com/papercomputeco/aide/pkg/sse"
)

// Server is the API server for learning and querying memories.
type Server struct {
	config   Config
	services *aide.Services
	logger   *slog.Logger
	app      *fiber.App
	hub      *sse.Hub
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new API server around services.
func NewServer(config Config, services *aide.Services, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		services: services,
		logger:   logger,
		app:      app,
		hub:      sse.NewHub(logger),
	}

	eventbus.SubscribeMemoryChanged(services.Bus, EventsSubscriberName, s.broadcastMemoryChanged)

	app.Get("/ping", s.handlePing)
	app.Get("/metrics", adaptor.HTTPHandler(services.Metrics.Handler()))

	v1 := app.Group("/v1")
	v1.Get("/realms", s.handleListRealms)
	v1.Get("/realms/:id/memories", s.handleListMemories)
	v1.Get("/search", s.handleSearch)
	v1.Post("/learn", s.handleLearn)
	v1.Post("/reindex", s.handleReindex)
	v1.Get("/stats", s.handleStats)
	v1.Get("/events", s.handleEvents)

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Searcher: services.Searcher,
			Store:    services.Store,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating MCP server: %w", err)
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown ends every event stream and gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	s.hub.Close()
	return s.app.Shutdown()
}
