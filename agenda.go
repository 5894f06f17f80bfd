package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/avirtanen/caldsched/internal/agenda"
	"github.com/avirtanen/caldsched/internal/runner"
	"github.com/avirtanen/caldsched/internal/schedule"
)

// dataDirPermissions matches the standard directory permissions.
const dataDirPermissions = 0o755

func newAgendaCmd() *cobra.Command {
	var flagDays int

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show upcoming calendar entries",
		Long: `Build and print the agenda view from the configured calendar files.

When agenda gating is enabled and the last sync is older than the cooldown
(or no sync has run yet in this invocation), the external sync command runs
first so the agenda reflects fresh data. A failed sync is reported but never
blocks the agenda.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runAgenda(flagDays)
		},
	}

	cmd.Flags().IntVar(&flagDays, "days", 7, "number of days to include")

	return cmd
}

func runAgenda(days int) error {
	logger := buildLogger()
	cfg := resolvedCfg

	if days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	ctx := shutdownContext(context.Background(), logger)

	// The cooldown gate runs before the read: the agenda's usefulness
	// depends on externally sourced data being fresh.
	syncer := runner.NewExecSyncer(cfg.SyncCommand, cfg.SyncArgs, cfg.SyncAutoArgs, logger)
	run := runner.New(syncer, logger)

	sched := schedule.New(schedule.Config{
		IdleDelay:      cfg.IdleDelay,
		AgendaCooldown: cfg.AgendaCooldown,
		GateEnabled:    cfg.AgendaGating,
		WatchPaths:     cfg.CalendarFiles,
	}, run, schedule.NewRealClock(), logger)

	if cfg.Enabled {
		sched.Enable(run)
	}

	sched.BeforeAgendaBuild(ctx)

	if err := os.MkdirAll(cfg.DataDir, dataDirPermissions); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := agenda.OpenStore(ctx, cfg.AgendaCachePath(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	builder := agenda.NewBuilder(store, logger)

	from := startOfDay(time.Now())
	to := from.AddDate(0, 0, days)

	entries, err := builder.Build(ctx, cfg.CalendarFiles, from, to)
	if err != nil {
		return err
	}

	printAgenda(entries)

	return nil
}

// printAgenda writes the entries as an aligned table on stdout.
func printAgenda(entries []agenda.Entry) {
	if len(entries) == 0 {
		fmt.Println("No upcoming entries.")
		return
	}

	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		when := e.Start.Format("Mon Jan _2 15:04")
		if e.AllDay {
			when = e.Start.Format("Mon Jan _2") + " (all day)"
		}

		rows = append(rows, []string{when, e.Summary, filepath.Base(e.Calendar)})
	}

	printTable(os.Stdout, []string{"WHEN", "WHAT", "CALENDAR"}, rows)
}

// startOfDay truncates t to local midnight.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
