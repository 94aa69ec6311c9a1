package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sensorfusion/multiqueue/config"
	"github.com/sensorfusion/multiqueue/internal/ingest"
	"github.com/sensorfusion/multiqueue/telemetry"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var (
		configPath     string
		logLevel       string
		diagEnabled    bool
		diagListenAddr string
		diagDepth      int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest service, reading a session from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			if cmd.Flags().Changed("diagnostics") {
				cfg.Diagnostics.Enabled = diagEnabled
			}
			if cmd.Flags().Changed("diagnostics-addr") {
				cfg.Diagnostics.ListenAddr = diagListenAddr
			}
			if cmd.Flags().Changed("diagnostics-depth") {
				cfg.Diagnostics.RecorderDepth = diagDepth
			}

			level, err := telemetry.ParseLevel(cfg.Logging.Level)
			if err != nil {
				return err
			}
			logger := telemetry.New(os.Stderr, level)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting ingest service",
				telemetry.String("diagnostics_addr", cfg.Diagnostics.ListenAddr),
			)

			if err := ingest.Run(ctx, ingest.Options{
				Config: cfg,
				Logger: logger,
				Input:  os.Stdin,
			}); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (optional, defaults otherwise)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level: debug|info|warn|error")
	cmd.Flags().BoolVar(&diagEnabled, "diagnostics", false, "enable the websocket diagnostics server")
	cmd.Flags().StringVar(&diagListenAddr, "diagnostics-addr", "", "diagnostics server listen address")
	cmd.Flags().IntVar(&diagDepth, "diagnostics-depth", 0, "per-stream recorder retention depth")

	return cmd
}
