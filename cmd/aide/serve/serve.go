// Package servecmder provides the serve command for running the HTTP API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/api"
	"github.com/papercomputeco/aide/cmd/aide/cmdenv"
	"github.com/papercomputeco/aide/pkg/config"
)

type serveCommander struct {
	listen     string
	disableMCP bool

	env *cmdenv.Env
}

const serveLongDesc string = `Run the aide API server.

Serves the JSON API under /v1, Prometheus metrics under /metrics and an
MCP endpoint under /mcp exposing the search and list_realms tools.

Examples:
  aide serve
  aide serve --listen :9000 --no-mcp`

const serveShortDesc string = "Run the aide API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.env, err = cmdenv.Load(cmd, cmdenv.Binding{
				Flags: config.ServeFlags,
				Keys:  []string{config.FlagAPIListen},
			})
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	config.AddStoreFlags(cmd)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagAPIListen, &cmder.listen)
	cmd.Flags().BoolVar(&cmder.disableMCP, "no-mcp", false, "Do not serve the MCP endpoint")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.env.SetLevel(slog.LevelInfo)
	logger := c.env.Logger

	services, err := c.env.Services(ctx)
	if err != nil {
		return err
	}
	defer services.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr: c.env.Config.API.Listen,
		DisableMCP: c.disableMCP,
	}, services, logger)
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting api server", "addr", c.env.Config.API.Listen)
		errChan <- server.Run()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down api server")
		return server.Shutdown()
	}
}
