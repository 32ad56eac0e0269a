package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestScanMigrations(t *testing.T) {
	t.Parallel()

	t.Run("orders by numeric version and reads descriptions", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{
			"migrations/010_add_index.sql":      {Data: []byte("CREATE INDEX idx ON t(id);")},
			"migrations/002_second.sql":         {Data: []byte("-- Description: Adds the second table\nCREATE TABLE b (id TEXT);")},
			"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"migrations/README.md":              {Data: []byte("ignored")},
		}

		migrations, err := NewFileScanner(fsys).ScanMigrations("migrations")
		if err != nil {
			t.Fatalf("ScanMigrations returned error: %v", err)
		}
		if len(migrations) != 3 {
			t.Fatalf("expected 3 migrations, got %d", len(migrations))
		}
		if migrations[0].Version != "001" || migrations[1].Version != "002" || migrations[2].Version != "010" {
			t.Fatalf("unexpected order: %s, %s, %s", migrations[0].Version, migrations[1].Version, migrations[2].Version)
		}
		if migrations[0].Description != "initial schema" {
			t.Fatalf("expected filename description, got %q", migrations[0].Description)
		}
		if migrations[1].Description != "Adds the second table" {
			t.Fatalf("expected content description, got %q", migrations[1].Description)
		}
		if migrations[0].FilePath != "migrations/001_initial_schema.sql" {
			t.Fatalf("unexpected file path %q", migrations[0].FilePath)
		}
		if migrations[0].Checksum != Checksum("CREATE TABLE a (id TEXT);") {
			t.Fatalf("unexpected checksum %q", migrations[0].Checksum)
		}
	})

	t.Run("rejects malformed names", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{"migrations/initial.sql": {Data: []byte("SELECT 1;")}}
		if _, err := NewFileScanner(fsys).ScanMigrations("migrations"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{
			"migrations/001_a.sql":  {Data: []byte("SELECT 1;")},
			"migrations/0001_b.sql": {Data: []byte("SELECT 2;")},
		}
		if _, err := NewFileScanner(fsys).ScanMigrations("migrations"); !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})

	t.Run("rejects comment-only files", func(t *testing.T) {
		t.Parallel()
		fsys := fstest.MapFS{"migrations/001_empty.sql": {Data: []byte("-- nothing here\n")}}
		if _, err := NewFileScanner(fsys).ScanMigrations("migrations"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		if _, err := NewFileScanner(fstest.MapFS{}).ScanMigrations("migrations"); err == nil {
			t.Fatal("expected error for missing directory")
		}
	})
}

func TestChecksumIsStableAndSensitive(t *testing.T) {
	t.Parallel()

	a := Checksum("CREATE TABLE a (id TEXT);")
	if a != Checksum("CREATE TABLE a (id TEXT);") {
		t.Fatal("expected identical content to hash identically")
	}
	if a == Checksum("CREATE TABLE a (id TEXT );") {
		t.Fatal("expected modified content to change the checksum")
	}
	if len(a) != 64 {
		t.Fatalf("expected 32-byte hex digest, got %d characters", len(a))
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	statements := splitStatements(`
-- Description: demo
CREATE TABLE a (
	id TEXT -- trailing comments stay
);
-- a comment between statements
CREATE INDEX idx_a ON a(id);
`)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE INDEX idx_a ON a(id)" {
		t.Fatalf("unexpected second statement %q", statements[1])
	}
}
