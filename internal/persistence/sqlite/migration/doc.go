// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migration files are read from an fs.FS (normally an embed.FS compiled into
// the binary) and follow the naming convention {version}_{description}.sql,
// e.g. "001_initial_schema.sql". Each migration runs in its own transaction
// together with its row in the schema_migrations table, so a failed migration
// leaves no trace.
//
// The checksum of every applied file is recorded. Editing a migration after it
// has been applied is detected on the next run and aborts with
// ErrChecksumMismatch.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewFileScanner(files), migration.NewSQLiteExecutor(db), "migrations", logger)
//	if _, err := manager.RunMigrations(ctx); err != nil {
//		return fmt.Errorf("migrate: %w", err)
//	}
package migration
