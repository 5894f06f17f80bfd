package agenda

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "agenda.db")

	store, err := OpenStore(context.Background(), dbPath, testLogger(t))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	t.Cleanup(func() { store.Close() })

	return store
}

func TestStore_ReplaceAndQuery(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	ctx := context.Background()

	entries := []Entry{
		{Summary: "Standup", Start: time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 16, 9, 15, 0, 0, time.UTC)},
		{Summary: "Review", Start: time.Date(2026, 3, 18, 14, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC)},
		{Summary: "Conference", Start: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), AllDay: true},
	}

	if err := store.ReplaceFile(ctx, "/cal/work.ics", 42, entries); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	// Window covers the first two entries only.
	got, err := store.EntriesBetween(ctx,
		time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("EntriesBetween: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}

	if got[0].Summary != "Standup" || got[1].Summary != "Review" {
		t.Errorf("order = %q, %q; want Standup, Review", got[0].Summary, got[1].Summary)
	}

	if !got[0].Start.Equal(entries[0].Start) {
		t.Errorf("Start = %v, want %v", got[0].Start, entries[0].Start)
	}

	if got[0].Calendar != "/cal/work.ics" {
		t.Errorf("Calendar = %q", got[0].Calendar)
	}
}

func TestStore_FileMtimeRoundtrip(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	ctx := context.Background()

	if _, known, err := store.FileMtime(ctx, "/cal/none.ics"); err != nil || known {
		t.Fatalf("FileMtime on unknown file: known=%v err=%v", known, err)
	}

	if err := store.ReplaceFile(ctx, "/cal/work.ics", 1234, nil); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	mtime, known, err := store.FileMtime(ctx, "/cal/work.ics")
	if err != nil {
		t.Fatalf("FileMtime: %v", err)
	}

	if !known || mtime != 1234 {
		t.Errorf("mtime = %d known = %v, want 1234 true", mtime, known)
	}
}

func TestStore_ReplaceDropsStaleEntries(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	ctx := context.Background()
	window := func() (time.Time, time.Time) {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	first := []Entry{{Summary: "Old", Start: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}}
	if err := store.ReplaceFile(ctx, "/cal/a.ics", 1, first); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	second := []Entry{{Summary: "New", Start: time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)}}
	if err := store.ReplaceFile(ctx, "/cal/a.ics", 2, second); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	from, to := window()

	got, err := store.EntriesBetween(ctx, from, to)
	if err != nil {
		t.Fatalf("EntriesBetween: %v", err)
	}

	if len(got) != 1 || got[0].Summary != "New" {
		t.Fatalf("got %+v, want only New", got)
	}
}

func TestStore_RemoveFile(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	ctx := context.Background()

	entries := []Entry{{Summary: "Gone", Start: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}}
	if err := store.ReplaceFile(ctx, "/cal/b.ics", 1, entries); err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}

	if err := store.RemoveFile(ctx, "/cal/b.ics"); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}

	if _, known, err := store.FileMtime(ctx, "/cal/b.ics"); err != nil || known {
		t.Errorf("file still known after remove: known=%v err=%v", known, err)
	}

	got, err := store.EntriesBetween(ctx,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("EntriesBetween: %v", err)
	}

	if len(got) != 0 {
		t.Errorf("len(got) = %d, want 0 after remove", len(got))
	}
}
