// Package initcmder provides the init command for initializing a local .aide
// directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/pkg/cliui"
	"github.com/papercomputeco/aide/pkg/config"
	"github.com/papercomputeco/aide/pkg/dotdir"
)

const configFile = "config.toml"

const remoteConfigTimeout = 10 * time.Second

type initCommander struct {
	preset string
	out    io.Writer
}

const initLongDesc string = `Initialize a new .aide/ directory in the current working directory.

Creates a local .aide/ directory that takes precedence over the default
~/.aide/ directory for the memory database, feeds file and configuration.
A config.toml is written unless one already exists.

--preset selects the embedding provider defaults (ollama, openai) or
names an http(s) URL to download a config.toml from.

Examples:
  aide init
  aide init --preset openai
  aide init --preset https://example.com/aide/config.toml`

const initShortDesc string = "Initialize a local .aide/ directory"

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Preset name ("+strings.Join(config.ValidPresetNames(), ", ")+") or URL of a config.toml")

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	data, err := c.configTOML(ctx)
	if err != nil {
		return err
	}

	dir, err := dotdir.NewManager().InitLocal()
	if err != nil {
		return err
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(c.out, "%s Initialized .aide directory: %s\n", cliui.SuccessMark, dir)
	return nil
}

// configTOML returns the config.toml contents selected by the preset.
func (c *initCommander) configTOML(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(ctx, c.preset)
	}

	cfg := config.NewDefaultConfig()
	if c.preset != "" {
		var err error
		cfg, err = config.PresetConfig(c.preset)
		if err != nil {
			return nil, err
		}
	}
	return config.EncodeConfigTOML(cfg)
}

func fetchRemoteConfig(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteConfigTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching config from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching config from %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", url, err)
	}

	if _, err := config.ParseConfigTOML(data); err != nil {
		return nil, fmt.Errorf("invalid config from %s: %w", url, err)
	}
	return data, nil
}
