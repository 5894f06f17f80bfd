package main

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
)

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause sync scheduling in the running daemon",
		Long: `Send SIGUSR1 to the running watch daemon, disabling sync scheduling.

Any pending debounce timer is cancelled and no further syncs are scheduled
until "caldsched resume".`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := signalDaemon(resolvedCfg.PIDFilePath(), syscall.SIGUSR1); err != nil {
				return err
			}

			fmt.Println("Sync scheduling paused.")

			return nil
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume sync scheduling in the running daemon",
		Long:  `Send SIGUSR2 to the running watch daemon, re-enabling sync scheduling.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := signalDaemon(resolvedCfg.PIDFilePath(), syscall.SIGUSR2); err != nil {
				return err
			}

			fmt.Println("Sync scheduling resumed.")

			return nil
		},
	}
}
