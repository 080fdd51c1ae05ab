package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"simonwaldherr.de/go/mockserv/internal/config"
	"simonwaldherr.de/go/mockserv/internal/server"
	"simonwaldherr.de/go/mockserv/pkg/logging"
)

const defaultConfigFile = "mockserv.yaml"

type serveOptions struct {
	configFile string
	listen     string
	mockRoot   string
	toolsDir   string
	debug      bool
	noWatch    bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock server",
		Long: `Starts the HTTP server.

Settings are read from the config file (if it exists) and then overridden by
flags. While running, the config file is watched: changes to mock_root,
tools_dir, script_timeout and log_level apply without a restart. listen and
workers are read once at startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", defaultConfigFile, "Path to the YAML config file")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "Address to listen on (overrides config)")
	cmd.Flags().StringVar(&opts.mockRoot, "mock-root", "", "Directory holding mock scripts (overrides config)")
	cmd.Flags().StringVar(&opts.toolsDir, "tools-dir", "", "Directory holding command tools (overrides config)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not reload the config file on change")
	return cmd
}

// applyFlags overrides s with every flag the user set explicitly.
func (o *serveOptions) applyFlags(cmd *cobra.Command, s config.Settings) config.Settings {
	if cmd.Flags().Changed("listen") {
		s.Listen = o.listen
	}
	if cmd.Flags().Changed("mock-root") {
		s.MockRoot = o.mockRoot
	}
	if cmd.Flags().Changed("tools-dir") {
		s.ToolsDir = o.toolsDir
	}
	if o.debug {
		s.LogLevel = "debug"
	}
	return s
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	settings, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	settings = opts.applyFlags(cmd, settings)
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	level, err := logging.ParseLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, os.Stderr)

	cfg := config.NewConfig()
	cfg.Update(settings)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if !opts.noWatch {
		watcher, err := config.NewWatcher(opts.configFile, cfg, func(s config.Settings) {
			// Flags keep winning over the file after a reload.
			cfg.Update(opts.applyFlags(cmd, s))
			if lvl, err := logging.ParseLevel(cfg.Get().LogLevel); err == nil {
				logging.SetLevel(lvl)
			}
		})
		if err != nil {
			logging.Warn("CLI", "Config reload disabled: %v", err)
		} else {
			g.Go(func() error { return watcher.Run(ctx) })
		}
	}
	g.Go(func() error { return server.NewServer(cfg).Run(ctx) })
	return g.Wait()
}
