package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avirtanen/caldsched/internal/runner"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run the external sync command now",
		Long: `Run the configured external sync command once, with its normal
interactive options. This is the same operation the scheduler triggers in
the background, minus the automatic-mode overrides.`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}
}

func runSync(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	cfg := resolvedCfg

	syncer := runner.NewExecSyncer(cfg.SyncCommand, cfg.SyncArgs, cfg.SyncAutoArgs, logger)
	run := runner.New(syncer, logger)

	ctx := shutdownContext(context.Background(), logger)

	if _, err := run.Run(ctx, runner.Interactive()); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	return nil
}
