// Package cmdenv resolves the configuration, logger and services shared by
// every aide command.
package cmdenv

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/pkg/aide"
	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/dotdir"
	"github.com/papercomputeco/aide/pkg/logger"
)

// Env is the resolved environment of one command invocation.
type Env struct {
	// Dir is the .aide/ directory relative paths resolve against.
	Dir string

	Config *config.Config
	Logger *slog.Logger

	debug bool
	level slog.Level
	errw  io.Writer
}

// Binding pairs a FlagSet with the registry keys a command registered from it.
type Binding struct {
	Flags config.FlagSet
	Keys  []string
}

// Load resolves the configuration for cmd: registered flags first, then
// AIDE_ environment variables, then config.toml, then defaults. The store
// flags are always bound.
func Load(cmd *cobra.Command, bindings ...Binding) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v, err := config.InitViper(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.StoreFlags, config.StoreFlagKeys)
	for _, b := range bindings {
		config.BindRegisteredFlags(v, cmd, b.Flags, b.Keys)
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	e := &Env{
		Dir:    dir,
		Config: cfg,
		debug:  debug,
		errw:   cmd.ErrOrStderr(),
	}
	e.SetLevel(slog.LevelWarn)
	return e, nil
}

// SetLevel rebuilds Logger at level. One-shot commands log warnings only;
// long-running ones raise this to info.
func (e *Env) SetLevel(level slog.Level) {
	e.level = level
	e.Logger = logger.New(
		logger.WithDebug(e.debug),
		logger.WithLevel(level),
		logger.WithPretty(true),
		logger.WithWriter(e.errw),
	)
}

// LogToFile adds a JSON copy of every record at the current level to the
// file at path, resolved against the .aide/ directory and appended to.
// The returned closer closes the file.
func (e *Env) LogToFile(path string) (io.Closer, error) {
	f, err := os.OpenFile(e.Path(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	e.Logger = logger.Multi(e.Logger, logger.New(
		logger.WithDebug(e.debug),
		logger.WithLevel(e.level),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return f, nil
}

// Services builds the application services from e.
func (e *Env) Services(ctx context.Context) (*aide.Services, error) {
	return aide.New(ctx, aide.Options{
		Config: e.Config,
		Dir:    e.Dir,
		Logger: e.Logger,
	})
}

// Path resolves a configured path against the .aide/ directory.
func (e *Env) Path(path string) string {
	return dotdir.Resolve(e.Dir, path)
}
