package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// ErrNoSyncCommand is returned when no external sync command is configured.
var ErrNoSyncCommand = errors.New("runner: no sync command configured (set [sync] command in the config file)")

// ExecSyncer runs a user-configured external synchronization command
// (e.g. vdirsyncer). The scheduling layer treats the command as opaque:
// its exit status is the only signal, and its own output handling applies
// unless the automatic policy suppresses it.
type ExecSyncer struct {
	command  string
	args     []string
	autoArgs []string // appended for unattended runs (quiet / auto-resolve flags)
	logger   *slog.Logger
}

// NewExecSyncer creates an ExecSyncer. args are always passed to the
// command; autoArgs are appended only when the automatic policy asks for
// silent deletion resolution.
func NewExecSyncer(command string, args, autoArgs []string, logger *slog.Logger) *ExecSyncer {
	return &ExecSyncer{
		command:  command,
		args:     args,
		autoArgs: autoArgs,
		logger:   logger,
	}
}

// Sync executes the external command, blocking until it exits. Each run is
// tagged with a UUID so log lines from the same invocation correlate.
func (e *ExecSyncer) Sync(ctx context.Context, opts Options) (Result, error) {
	if e.command == "" {
		return Result{}, ErrNoSyncCommand
	}

	runID := uuid.NewString()

	args := make([]string, 0, len(e.args)+len(e.autoArgs))
	args = append(args, e.args...)

	if opts.ResolveDeletions {
		args = append(args, e.autoArgs...)
	}

	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Stderr = os.Stderr

	if opts.SuppressReport {
		cmd.Stdout = io.Discard
	} else {
		cmd.Stdout = os.Stdout
	}

	e.logger.Info("starting sync command",
		slog.String("run_id", runID),
		slog.String("command", e.command),
		slog.Bool("suppress_report", opts.SuppressReport),
	)

	start := time.Now()
	err := cmd.Run()
	res := Result{RunID: runID, Duration: time.Since(start)}

	if err != nil {
		return res, fmt.Errorf("runner: sync command %s: %w", e.command, err)
	}

	return res, nil
}
