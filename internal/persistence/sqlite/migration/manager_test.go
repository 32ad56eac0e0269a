package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewConnectionManager(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db"))).GetConnection()
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func twoMigrations() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_create_widgets.sql": {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"migrations/002_add_name.sql":       {Data: []byte("ALTER TABLE widgets ADD COLUMN name TEXT NOT NULL DEFAULT '';")},
	}
}

func TestManagerRunMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	fsys := twoMigrations()
	manager := NewManager(NewFileScanner(fsys), NewSQLiteExecutor(db), "migrations", nil)

	applied, err := manager.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", applied)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO widgets (id, name) VALUES ('w-1', 'Sprocket')`); err != nil {
		t.Fatalf("expected migrated schema, insert failed: %v", err)
	}

	again, err := manager.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("second run returned error: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected second run to be a no-op, applied %d", again)
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Pending) != 0 || len(status.Applied) != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Applied[0].Checksum != Checksum(string(fsys["migrations/001_create_widgets.sql"].Data)) {
		t.Fatalf("expected recorded checksum, got %q", status.Applied[0].Checksum)
	}
}

func TestManagerDetectsModifiedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	fsys := twoMigrations()
	if _, err := NewManager(NewFileScanner(fsys), NewSQLiteExecutor(db), "migrations", nil).RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations returned error: %v", err)
	}

	fsys["migrations/001_create_widgets.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")}
	_, err := NewManager(NewFileScanner(fsys), NewSQLiteExecutor(db), "migrations", nil).RunMigrations(ctx)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestManagerRejectsGaps(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"migrations/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
		"migrations/003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
	}
	_, err := NewManager(NewFileScanner(fsys), NewSQLiteExecutor(openTestDB(t)), "migrations", nil).RunMigrations(context.Background())
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestManagerRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"migrations/001_ok.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"migrations/002_broken.sql": {Data: []byte("CREATE TABLE half (id TEXT);\nINSERT INTO missing_table VALUES (1);")},
	}
	manager := NewManager(NewFileScanner(fsys), NewSQLiteExecutor(db), "migrations", nil)

	applied, err := manager.RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected the first migration to stay applied, got %d", applied)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'half'`).Scan(&count); err != nil {
		t.Fatalf("failed to inspect schema: %v", err)
	}
	if count != 0 {
		t.Fatal("expected the failed migration's statements to be rolled back")
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "001" || len(status.Pending) != 1 {
		t.Fatalf("unexpected status after failure: %+v", status)
	}
}

type failingScanner struct{ err error }

func (f failingScanner) ScanMigrations(string) ([]Migration, error) { return nil, f.err }

func TestManagerPropagatesScanErrors(t *testing.T) {
	t.Parallel()

	scanErr := errors.New("scan failed")
	_, err := NewManager(failingScanner{err: scanErr}, NewSQLiteExecutor(openTestDB(t)), "migrations", nil).RunMigrations(context.Background())
	if !errors.Is(err, scanErr) {
		t.Fatalf("expected scan error, got %v", err)
	}
}
