package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/avirtanen/caldsched/internal/runner"
	"github.com/avirtanen/caldsched/internal/schedule"
	"github.com/avirtanen/caldsched/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var flagDisabled bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the sync scheduling daemon",
		Long: `Watch the configured calendar files and schedule background syncs.

A burst of edits is coalesced into one sync that runs after the idle delay
has passed with no further changes. SIGUSR1 pauses scheduling, SIGUSR2
resumes it (see "caldsched pause" / "caldsched resume").`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runWatch(flagDisabled)
		},
	}

	cmd.Flags().BoolVar(&flagDisabled, "disabled", false, "start with sync scheduling disabled")

	return cmd
}

func runWatch(startDisabled bool) error {
	logger := buildLogger()
	cfg := resolvedCfg

	if len(cfg.CalendarFiles) == 0 {
		return fmt.Errorf("no calendar files configured (set [calendar] files in %s)", flagConfigPath)
	}

	cleanup, err := writePIDFile(cfg.PIDFilePath())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := shutdownContext(context.Background(), logger)

	syncer := runner.NewExecSyncer(cfg.SyncCommand, cfg.SyncArgs, cfg.SyncAutoArgs, logger)
	run := runner.New(syncer, logger)

	sched := schedule.New(schedule.Config{
		IdleDelay:      cfg.IdleDelay,
		AgendaCooldown: cfg.AgendaCooldown,
		GateEnabled:    cfg.AgendaGating,
		WatchPaths:     cfg.CalendarFiles,
	}, run, schedule.NewRealClock(), logger)

	if cfg.Enabled && !startDisabled {
		sched.Enable(run)
	} else {
		logger.Info("starting with sync scheduling disabled")
	}

	w, err := watch.New(sched, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.WatchCalendars(cfg.CalendarFiles); err != nil {
		return err
	}

	logger.Info("caldsched daemon started",
		slog.Int("calendars", len(cfg.CalendarFiles)),
		slog.Duration("idle_delay", cfg.IdleDelay),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error {
		controlSignalLoop(gctx, sched, run, logger)
		return nil
	})

	return g.Wait()
}

// controlSignalLoop toggles the scheduler at runtime: SIGUSR1 disables
// scheduling (cancelling any pending timer and detaching hooks), SIGUSR2
// re-enables it.
func controlSignalLoop(ctx context.Context, sched *schedule.Scheduler, run *runner.Runner, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGUSR2)

	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return

		case sig := <-sigCh:
			switch sig {
			case syscall.SIGUSR1:
				logger.Info("pause requested")
				sched.Disable()
			case syscall.SIGUSR2:
				logger.Info("resume requested")
				sched.Enable(run)
			}
		}
	}
}
