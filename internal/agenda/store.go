// Package agenda builds the agenda view the cooldown gate guards: entries
// parsed from the configured calendar files, cached in SQLite so repeated
// builds do not reparse unchanged files. The cache holds parsed calendar
// data only — scheduling state never touches disk.
package agenda

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the SQLite-backed entry cache. Sole-writer: the connection pool
// is capped at one to keep SQLite happy under WAL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenStore opens (or creates) the cache database at dbPath and applies
// pending schema migrations. Use ":memory:" in tests.
func OpenStore(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("agenda: opening cache db: %w", err)
	}

	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()

			return nil, fmt.Errorf("agenda: setting pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("agenda: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("agenda: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("agenda: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FileMtime returns the cached modification time for a calendar file and
// whether the file is known to the cache.
func (s *Store) FileMtime(ctx context.Context, path string) (int64, bool, error) {
	var mtime int64

	err := s.db.QueryRowContext(ctx,
		`SELECT mtime FROM calendar_files WHERE path = ?`, path).Scan(&mtime)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("agenda: reading cached mtime for %s: %w", path, err)
	}

	return mtime, true, nil
}

// ReplaceFile atomically replaces all cached entries for a calendar file
// and records its modification time.
func (s *Store) ReplaceFile(ctx context.Context, path string, mtime int64, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("agenda: begin replace for %s: %w", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO calendar_files (path, mtime) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET mtime = excluded.mtime`, path, mtime); err != nil {
		return fmt.Errorf("agenda: upserting file %s: %w", path, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("agenda: clearing entries for %s: %w", path, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (path, summary, start_unix, end_unix, all_day)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("agenda: preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]

		allDay := 0
		if e.AllDay {
			allDay = 1
		}

		if _, err := stmt.ExecContext(ctx,
			path, e.Summary, e.Start.Unix(), e.End.Unix(), allDay); err != nil {
			return fmt.Errorf("agenda: inserting entry %q: %w", e.Summary, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("agenda: committing replace for %s: %w", path, err)
	}

	s.logger.Debug("calendar cache updated",
		slog.String("path", path),
		slog.Int("entries", len(entries)),
	)

	return nil
}

// RemoveFile drops a calendar file and its entries from the cache.
func (s *Store) RemoveFile(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("agenda: begin remove for %s: %w", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("agenda: removing entries for %s: %w", path, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("agenda: removing file %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("agenda: committing remove for %s: %w", path, err)
	}

	return nil
}

// FilesUnder returns the cached calendar file paths located under dir.
// Used to drop cache rows for files deleted from a directory calendar.
func (s *Store) FilesUnder(ctx context.Context, dir string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM calendar_files WHERE path LIKE ? || '/%'`,
		strings.TrimRight(dir, "/"))
	if err != nil {
		return nil, fmt.Errorf("agenda: querying files under %s: %w", dir, err)
	}
	defer rows.Close()

	var paths []string

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("agenda: scanning file path: %w", err)
		}

		paths = append(paths, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agenda: iterating files under %s: %w", dir, err)
	}

	return paths, nil
}

// EntriesBetween returns cached entries with a start time in [from, to),
// ordered by start time then summary for deterministic output.
func (s *Store) EntriesBetween(ctx context.Context, from, to time.Time) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, summary, start_unix, end_unix, all_day
		 FROM entries
		 WHERE start_unix >= ? AND start_unix < ?
		 ORDER BY start_unix, summary`,
		from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("agenda: querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e          Entry
			start, end int64
			allDay     int
		)

		if err := rows.Scan(&e.Calendar, &e.Summary, &start, &end, &allDay); err != nil {
			return nil, fmt.Errorf("agenda: scanning entry: %w", err)
		}

		e.Start = time.Unix(start, 0).In(time.Local)
		e.End = time.Unix(end, 0).In(time.Local)
		e.AllDay = allDay != 0

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agenda: iterating entries: %w", err)
	}

	return entries, nil
}
