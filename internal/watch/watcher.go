// Package watch produces change events for the sync scheduler. It wraps
// fsnotify over the directories that contain the configured calendar
// files, filters out editor droppings and chmod noise, and forwards the
// surviving paths. Scope filtering against the watch list stays in the
// scheduler; this package only observes the filesystem.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/unicode/norm"
)

// Error backoff parameters for the watcher loop. Sustained fsnotify errors
// (e.g. kernel queue overflow) must not spin.
const (
	errInitBackoff = 100 * time.Millisecond
	errBackoffMult = 2
	errMaxBackoff  = 30 * time.Second
)

// Notifier receives filtered change events. Satisfied by
// *schedule.Scheduler.
type Notifier interface {
	OnChangeEvent(paths ...string)
}

// FsWatcher abstracts fsnotify for tests.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

// fsnotifyWatcher adapts *fsnotify.Watcher (channel fields) to FsWatcher.
type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f fsnotifyWatcher) Add(name string) error            { return f.w.Add(name) }
func (f fsnotifyWatcher) Close() error                     { return f.w.Close() }
func (f fsnotifyWatcher) Events() <-chan fsnotify.Event    { return f.w.Events }
func (f fsnotifyWatcher) Errors() <-chan error             { return f.w.Errors }

// Watcher forwards filesystem changes under the calendar directories to a
// Notifier.
type Watcher struct {
	fsw      FsWatcher
	notifier Notifier
	logger   *slog.Logger
}

// New creates a Watcher backed by fsnotify.
func New(notifier Notifier, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}

	return newWithFsWatcher(fsnotifyWatcher{w: fsw}, notifier, logger), nil
}

// newWithFsWatcher is the test seam behind New.
func newWithFsWatcher(fsw FsWatcher, notifier Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{fsw: fsw, notifier: notifier, logger: logger}
}

// WatchCalendars registers watches for the given calendar paths. For plain
// files the containing directory is watched (editors replace files via
// rename, which drops inode-level watches); directories are watched as-is.
func (w *Watcher) WatchCalendars(paths []string) error {
	dirs := make(map[string]bool)

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			w.logger.Warn("calendar path not found, watching its directory anyway",
				slog.String("path", p), slog.String("error", err.Error()))
			dirs[filepath.Dir(p)] = true

			continue
		}

		if info.IsDir() {
			dirs[p] = true
		} else {
			dirs[filepath.Dir(p)] = true
		}
	}

	for dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch: adding %s: %w", dir, err)
		}

		w.logger.Debug("watching directory", slog.String("dir", dir))
	}

	return nil
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run is the watcher's main loop. It blocks until the context is canceled
// or the event source closes, forwarding filtered events to the Notifier
// and backing off exponentially on watcher errors.
func (w *Watcher) Run(ctx context.Context) error {
	backoff := errInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events():
			if !ok {
				return nil
			}

			w.handleEvent(ev)

			backoff = errInitBackoff

		case err, ok := <-w.fsw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error",
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff),
			)

			if sleepErr := sleepCtx(ctx, backoff); sleepErr != nil {
				return nil
			}

			backoff *= errBackoffMult
			if backoff > errMaxBackoff {
				backoff = errMaxBackoff
			}
		}
	}
}

// handleEvent filters one fsnotify event and forwards the path if it
// qualifies. New directories are added to the watch set so nested
// calendar collections keep producing events.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	// Chmod-only events are noise: mode changes never alter calendar data.
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	name := norm.NFC.String(filepath.Base(ev.Name))
	if isEditorArtifact(name) {
		w.logger.Debug("ignoring editor artifact", slog.String("name", name))
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if addErr := w.fsw.Add(ev.Name); addErr != nil {
				w.logger.Warn("failed to watch new directory",
					slog.String("path", ev.Name), slog.String("error", addErr.Error()))
			}
		}
	}

	w.logger.Debug("change event",
		slog.String("path", ev.Name),
		slog.String("op", ev.Op.String()),
	)

	w.notifier.OnChangeEvent(ev.Name)
}

// isEditorArtifact reports whether the name is a lock, autosave, backup,
// or swap file that editors drop next to the real calendar file.
func isEditorArtifact(name string) bool {
	if strings.HasPrefix(name, ".#") || strings.HasPrefix(name, "#") {
		return true
	}

	if strings.HasSuffix(name, "~") {
		return true
	}

	lower := strings.ToLower(name)
	for _, ext := range []string{".tmp", ".swp", ".swx", ".partial"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return false
}

// sleepCtx sleeps for d or until the context is canceled, returning the
// context error in the latter case.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
