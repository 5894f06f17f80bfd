package agenda

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Builder produces the agenda view from the configured calendar paths,
// using the Store to skip files whose modification time is unchanged since
// the last build. A configured path may be a single .ics file or a
// directory of them.
type Builder struct {
	store  *Store
	logger *slog.Logger
}

// NewBuilder creates a Builder over the given cache.
func NewBuilder(store *Store, logger *slog.Logger) *Builder {
	return &Builder{store: store, logger: logger}
}

// Build refreshes the cache for each calendar path and returns all entries
// starting in [from, to), sorted by start time. Missing paths are dropped
// from the cache; unreadable or unparseable ones are logged and skipped so
// a single bad calendar cannot take down the agenda.
func (b *Builder) Build(ctx context.Context, paths []string, from, to time.Time) ([]Entry, error) {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("agenda: build canceled: %w", err)
		}

		if err := b.refreshPath(ctx, path); err != nil {
			b.logger.Warn("skipping calendar path",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	return b.store.EntriesBetween(ctx, from, to)
}

// refreshPath brings the cache up to date for one configured path,
// dispatching on whether it is a file or a directory.
func (b *Builder) refreshPath(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return b.removePath(ctx, path)
	}

	if err != nil {
		return fmt.Errorf("agenda: stat %s: %w", path, err)
	}

	if info.IsDir() {
		return b.refreshDir(ctx, path)
	}

	return b.refreshFile(ctx, path, info)
}

// refreshDir refreshes every .ics file directly inside dir and drops cache
// rows for files no longer present, so a deleted calendar does not linger
// in the agenda.
func (b *Builder) refreshDir(ctx context.Context, dir string) error {
	listing, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("agenda: reading directory %s: %w", dir, err)
	}

	present := make(map[string]bool)

	for _, de := range listing {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".ics") {
			continue
		}

		path := filepath.Join(dir, de.Name())
		present[path] = true

		info, err := de.Info()
		if err != nil {
			return fmt.Errorf("agenda: stat %s: %w", path, err)
		}

		if err := b.refreshFile(ctx, path, info); err != nil {
			b.logger.Warn("skipping calendar file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	cached, err := b.store.FilesUnder(ctx, dir)
	if err != nil {
		return err
	}

	for _, path := range cached {
		if !present[path] {
			if err := b.store.RemoveFile(ctx, path); err != nil {
				return err
			}
		}
	}

	return nil
}

// removePath drops a vanished configured path from the cache: the path
// itself plus, if it was a directory calendar, every cached file under it.
func (b *Builder) removePath(ctx context.Context, path string) error {
	cached, err := b.store.FilesUnder(ctx, path)
	if err != nil {
		return err
	}

	for _, p := range cached {
		if err := b.store.RemoveFile(ctx, p); err != nil {
			return err
		}
	}

	return b.store.RemoveFile(ctx, path)
}

// refreshFile brings the cache up to date for one calendar file.
func (b *Builder) refreshFile(ctx context.Context, path string, info fs.FileInfo) error {
	mtime := info.ModTime().UnixNano()

	cached, known, err := b.store.FileMtime(ctx, path)
	if err != nil {
		return err
	}

	if known && cached == mtime {
		b.logger.Debug("calendar unchanged, using cache", slog.String("path", path))
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("agenda: opening %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ParseICS(f, path)
	if err != nil {
		return err
	}

	return b.store.ReplaceFile(ctx, path, mtime, entries)
}
