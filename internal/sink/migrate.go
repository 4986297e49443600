package sink

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Migration files are named with a 4-digit prefix for order:
// 0001_name.sql, 0002_other.sql. Each dialect has its own directory.
//
//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

var migrationFileRe = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

type migration struct {
	version string
	name    string
	body    string
}

// dialect is the embedded directory name for a sqlx driver name
func dialect(driverName string) string {
	if driverName == "sqlite3" {
		return "sqlite"
	}
	return driverName
}

// migrateUp applies every embedded migration for the db's driver that is not
// yet recorded in schema_migrations, in version order.
func migrateUp(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	dir := "sql/" + dialect(db.DriverName())

	if err := ensureMigrationsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to ensure migrations table")
	}

	var versions []string
	if err := db.SelectContext(ctx, &versions, "SELECT version FROM "+migrationsTable); err != nil {
		return errors.Wrap(err, "failed to list applied migrations")
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return errors.Wrapf(err, "failed to read migrations dir %s", dir)
	}

	var pending []migration
	for _, e := range entries {
		m := migrationFileRe.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil || applied[m[1]] {
			continue
		}
		body, err := fs.ReadFile(migrationsFS, dir+"/"+e.Name())
		if err != nil {
			return errors.Wrapf(err, "failed to read migration %s", e.Name())
		}
		pending = append(pending, migration{version: m[1], name: m[2], body: string(body)})
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })

	for _, m := range pending {
		if err := applyMigration(ctx, db, m); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s_%s", m.version, m.name)
		}
		logger.Info("migration applied", "version", m.version, "name", m.name)
	}

	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sqlx.DB) error {
	appliedAt := "TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))"
	if db.DriverName() == "postgres" {
		appliedAt = "TIMESTAMPTZ NOT NULL DEFAULT now()"
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at `+appliedAt+`
		)`)
	return err
}

// applyMigration runs a migration and records it in one transaction
func applyMigration(ctx context.Context, db *sqlx.DB, m migration) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.body); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO "+migrationsTable+" (version, name) VALUES (?, ?)"),
		m.version, m.name,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}
