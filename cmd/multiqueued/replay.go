package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sensorfusion/multiqueue/config"
	"github.com/sensorfusion/multiqueue/internal/ingest"
	"github.com/sensorfusion/multiqueue/telemetry"
	"github.com/spf13/cobra"
)

func newReplayCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "replay <session-file>",
		Short: "Replay a recorded session through the merger and print the dispatch trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.Diagnostics.Enabled = false

			level, err := telemetry.ParseLevel(cfg.Logging.Level)
			if err != nil {
				return err
			}
			logger := telemetry.New(os.Stderr, level)

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			defer f.Close()

			if err := ingest.Run(context.Background(), ingest.Options{
				Config: cfg,
				Logger: logger,
				Input:  f,
				Trace:  os.Stdout,
			}); err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (optional, defaults otherwise)")
	return cmd
}
