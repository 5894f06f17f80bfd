// Package schedule decides when the expensive calendar sync runs. It
// combines an idle-timer debouncer, which coalesces bursts of file-change
// events into one deferred sync, with a cooldown gate that forces a
// synchronous sync before an agenda build when too much time has passed
// since the last one. The sync operation itself and the change-event
// producer are external collaborators.
package schedule

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/avirtanen/caldsched/internal/runner"
)

// Default scheduling parameters.
const (
	DefaultIdleDelay      = 5 * time.Minute
	DefaultAgendaCooldown = 24 * time.Hour
)

// Config holds the immutable scheduling parameters.
type Config struct {
	// IdleDelay is the quiet period after the last change event before an
	// automatic sync fires.
	IdleDelay time.Duration
	// AgendaCooldown is the minimum interval between forced syncs ahead of
	// an agenda build.
	AgendaCooldown time.Duration
	// GateEnabled controls whether agenda builds are gated at all.
	GateEnabled bool
	// WatchPaths lists the calendar files and directories considered in
	// scope for change events.
	WatchPaths []string
}

// SyncRunner is the opaque sync operation as seen by the scheduler.
// Satisfied by *runner.Runner.
type SyncRunner interface {
	Run(ctx context.Context, opts runner.Options) (runner.Result, error)
}

// CompletionSource lets the scheduler register its bookkeeping hook on the
// sync operation itself, so completions are observed regardless of which
// caller triggered them. Satisfied by *runner.Runner.
type CompletionSource interface {
	OnComplete(fn func()) (remove func())
}

// Scheduler owns the single pending-timer slot and the last-sync
// timestamp. All methods are safe for concurrent use: change events, timer
// fires, and agenda builds arrive from independent goroutines.
type Scheduler struct {
	clock  Clock
	runner SyncRunner
	logger *slog.Logger
	scope  []string // normalized WatchPaths

	mu        sync.Mutex
	cfg       Config
	enabled   bool
	pending   Timer
	armGen    uint64 // incremented on every arm; stale fires compare against it
	lastSync  time.Time
	hasSynced bool
	detach    func()
}

// New creates a Scheduler. The feature starts disabled; call Enable to
// wire it up. Zero or negative durations fall back to the defaults.
func New(cfg Config, sr SyncRunner, clk Clock, logger *slog.Logger) *Scheduler {
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = DefaultIdleDelay
	}

	if cfg.AgendaCooldown <= 0 {
		cfg.AgendaCooldown = DefaultAgendaCooldown
	}

	scope := make([]string, 0, len(cfg.WatchPaths))
	for _, p := range cfg.WatchPaths {
		scope = append(scope, normalizePath(p))
	}

	return &Scheduler{
		clock:  clk,
		runner: sr,
		logger: logger,
		scope:  scope,
		cfg:    cfg,
	}
}

// Enable turns the feature on and registers the completion hook with the
// sync operation. No-op if already enabled.
func (s *Scheduler) Enable(src CompletionSource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled {
		return
	}

	s.enabled = true
	s.detach = src.OnComplete(s.SyncCompleted)

	s.logger.Info("sync scheduling enabled",
		slog.Duration("idle_delay", s.cfg.IdleDelay),
		slog.Duration("agenda_cooldown", s.cfg.AgendaCooldown),
		slog.Bool("agenda_gating", s.cfg.GateEnabled),
	)
}

// Disable turns the feature off: any pending timer is cancelled and the
// completion hook is detached, leaving zero residual scheduled work.
// Idempotent.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}

	s.enabled = false
	s.cancelLocked()

	if s.detach != nil {
		s.detach()
		s.detach = nil
	}

	s.logger.Info("sync scheduling disabled")
}

// Enabled reports whether the feature is currently wired up.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enabled
}

// OnChangeEvent records that the given paths were modified. If any path is
// in scope, the debounce timer is (re)armed: the sync fires IdleDelay
// after the last qualifying event, not the first.
func (s *Scheduler) OnChangeEvent(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return
	}

	hit := ""

	for _, p := range paths {
		if s.inScope(normalizePath(p)) {
			hit = p
			break
		}
	}

	if hit == "" {
		s.logger.Debug("change event out of scope", slog.Int("paths", len(paths)))
		return
	}

	s.armLocked()

	s.logger.Debug("sync timer armed",
		slog.String("path", hit),
		slog.Duration("idle_delay", s.cfg.IdleDelay),
	)
}

// Cancel disarms any pending timer. Safe to call when nothing is armed.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
}

// BeforeAgendaBuild runs the cooldown gate. It must be called immediately
// before the agenda is built: if more than AgendaCooldown has elapsed
// since the last sync (or no sync has happened this process lifetime), it
// invokes a synchronous interactive sync and blocks until it returns. A
// failed sync never blocks the agenda build — the caller proceeds either
// way.
func (s *Scheduler) BeforeAgendaBuild(ctx context.Context) {
	s.mu.Lock()

	if !s.enabled || !s.cfg.GateEnabled {
		s.mu.Unlock()
		return
	}

	if s.hasSynced {
		elapsed := s.clock.Now().Sub(s.lastSync)
		if elapsed <= s.cfg.AgendaCooldown {
			s.mu.Unlock()
			s.logger.Debug("last sync within cooldown, skipping pre-agenda sync",
				slog.Duration("elapsed", elapsed),
			)

			return
		}
	}

	// Release the lock before the blocking sync: the completion hook
	// (SyncCompleted) needs it, and change events must not stall.
	s.mu.Unlock()

	s.logger.Info("sync cooldown expired, syncing before agenda build")

	if _, err := s.runner.Run(ctx, runner.Interactive()); err != nil {
		s.logger.Warn("pre-agenda sync failed, building agenda anyway",
			slog.String("error", err.Error()),
		)
	}
}

// SyncCompleted is the bookkeeping hook, invoked by the sync operation
// after every completed run regardless of who triggered it. It records the
// completion time and cancels any pending timer: a sync just ran, so a
// deferred one is redundant, and cancelling here breaks the loop where the
// sync's own file writes would reschedule another sync.
func (s *Scheduler) SyncCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSync = s.clock.Now()
	s.hasSynced = true
	s.cancelLocked()
}

// LastSyncAt returns the completion time of the most recent sync and
// whether any sync has completed this process lifetime.
func (s *Scheduler) LastSyncAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSync, s.hasSynced
}

// armLocked replaces the pending timer with a fresh one. Caller holds mu.
func (s *Scheduler) armLocked() {
	s.cancelLocked()

	s.armGen++
	gen := s.armGen
	s.pending = s.clock.AfterFunc(s.cfg.IdleDelay, func() { s.fire(gen) })
}

// cancelLocked stops and clears the pending timer slot. Caller holds mu.
func (s *Scheduler) cancelLocked() {
	if s.pending == nil {
		return
	}

	s.pending.Stop()
	s.pending = nil
}

// fire runs when the debounce timer elapses. The generation check discards
// fires from timers that were replaced or cancelled after their callback
// was already in flight — only the current arm may sync.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()

	if !s.enabled || s.pending == nil || gen != s.armGen {
		s.mu.Unlock()
		return
	}

	// Clear the slot before the sync runs so the next change event can
	// rearm independently.
	s.pending = nil
	s.mu.Unlock()

	s.logger.Info("idle delay elapsed, starting automatic sync")

	if _, err := s.runner.Run(context.Background(), runner.Automatic()); err != nil {
		s.logger.Warn("automatic sync failed", slog.String("error", err.Error()))
	}
}

// inScope reports whether the normalized path matches a watched file
// exactly or lies under a watched directory. Caller holds mu.
func (s *Scheduler) inScope(p string) bool {
	for _, w := range s.scope {
		if p == w || strings.HasPrefix(p, w+"/") {
			return true
		}
	}

	return false
}

// normalizePath canonicalizes a path for scope comparison: cleaned,
// forward slashes, NFC Unicode (macOS reports NFD).
func normalizePath(p string) string {
	return norm.NFC.String(filepath.ToSlash(filepath.Clean(p)))
}
