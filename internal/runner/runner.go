// Package runner wraps the externally supplied calendar synchronization
// operation behind a completion-hook layer. Every invocation — whether
// triggered by the debounce scheduler, the agenda cooldown gate, or a
// direct `caldsched sync` — goes through Runner.Run, which fires the
// registered completion hooks after the operation returns. The hooks fire
// on every return, success or failure: "sync returned" is the completion
// trigger, not "sync succeeded".
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Options selects the policy for a single sync invocation.
type Options struct {
	// ResolveDeletions answers deletion prompts in both directions without
	// asking, as required for unattended background syncs.
	ResolveDeletions bool
	// SuppressReport hides the post-sync report from the user.
	SuppressReport bool
}

// Automatic returns the options used for unattended, debounce-triggered
// syncs: no user interaction and no visible report.
func Automatic() Options {
	return Options{ResolveDeletions: true, SuppressReport: true}
}

// Interactive returns the options used for gate-triggered and manual
// syncs: the syncer's own defaults, no overrides.
func Interactive() Options {
	return Options{}
}

// Result summarizes a completed sync invocation.
type Result struct {
	RunID    string
	Duration time.Duration
}

// Syncer is the opaque synchronization operation. Implementations own the
// sync protocol, retries, and timeouts; the scheduling layer never
// inspects what Sync actually does.
type Syncer interface {
	Sync(ctx context.Context, opts Options) (Result, error)
}

// Runner invokes a Syncer and notifies completion hooks after every
// invocation, regardless of which component triggered it. Safe for
// concurrent use.
type Runner struct {
	mu     sync.Mutex
	syncer Syncer
	logger *slog.Logger
	hooks  map[int]func()
	nextID int
}

// New creates a Runner around the given Syncer.
func New(syncer Syncer, logger *slog.Logger) *Runner {
	return &Runner{
		syncer: syncer,
		logger: logger,
		hooks:  make(map[int]func()),
	}
}

// OnComplete registers fn to be called after every completed sync
// invocation. The returned function removes the registration; calling it
// more than once is safe.
func (r *Runner) OnComplete(fn func()) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.hooks[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		delete(r.hooks, id)
	}
}

// Run invokes the Syncer and fires all completion hooks once the call
// returns. The error from the Syncer is passed through unchanged — the
// runner never retries and never suppresses it.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	res, err := r.syncer.Sync(ctx, opts)

	// Hooks fire after every return so that all callers — scheduler,
	// gate, and manual invocations — observe the same completion.
	for _, fn := range r.snapshotHooks() {
		fn()
	}

	if err != nil {
		r.logger.Warn("sync run failed",
			slog.String("run_id", res.RunID),
			slog.String("error", err.Error()),
		)

		return res, err
	}

	r.logger.Info("sync run completed",
		slog.String("run_id", res.RunID),
		slog.Duration("duration", res.Duration),
	)

	return res, nil
}

// snapshotHooks copies the hook list under the lock so hooks run without
// holding it. A hook may deregister itself or others mid-flight; the
// snapshot keeps that safe.
func (r *Runner) snapshotHooks() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	fns := make([]func(), 0, len(r.hooks))
	for _, fn := range r.hooks {
		fns = append(fns, fn)
	}

	return fns
}
