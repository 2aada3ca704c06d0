package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Migration is one *.up.sql file and whether it has been recorded.
type Migration struct {
	Version string
	Path    string
	Applied bool
}

// ListMigrations reports every up migration in dir in apply order.
func ListMigrations(ctx context.Context, db *sql.DB, dir string) ([]Migration, error) {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return nil, err
	}
	files, err := upMigrationFiles(dir)
	if err != nil {
		return nil, err
	}

	migrations := make([]Migration, 0, len(files))
	for _, file := range files {
		version := filepath.Base(file)
		applied, err := isMigrated(ctx, db, version)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, Migration{Version: version, Path: file, Applied: applied})
	}
	return migrations, nil
}

// ApplyMigrations runs pending up migrations, each in its own transaction,
// and returns the versions it applied.
func ApplyMigrations(ctx context.Context, db *sql.DB, dir string) ([]string, error) {
	migrations, err := ListMigrations(ctx, db, dir)
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0)
	for _, migration := range migrations {
		if migration.Applied {
			continue
		}
		contents, err := os.ReadFile(migration.Path)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", migration.Version, err)
		}

		err = withTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
				return fmt.Errorf("execute migration %s: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, migration.Version); err != nil {
				return fmt.Errorf("record migration %s: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return applied, err
		}
		applied = append(applied, migration.Version)
	}
	return applied, nil
}

func upMigrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return classify("ensure schema_migrations", err)
	}
	return nil
}

func isMigrated(ctx context.Context, db *sql.DB, version string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, version).Scan(&exists)
	if err != nil {
		return false, classify("check migration "+version, err)
	}
	return exists, nil
}
