package schema

import (
	"context"
	"database/sql"
	"log/slog"
)

type migrationFn func(*sql.Tx) error

// migration pairs a stable name with the function that applies it. The
// name is recorded in the migrations table so re-opening an
// already-migrated database is a no-op; this is the store's only
// concession to schema evolution — monotonic, forward-only, no
// down-migrations, exactly as spec.md's Non-goals require.
type migration struct {
	name string
	fn   migrationFn
}

// pendingMigrations is intentionally empty at the schema's current
// version; it exists so a future column addition (e.g. a new optional
// Login field) can be appended here the way the teacher appends to its
// own migrations list, without touching createTablesSQL for databases
// that already exist on disk.
var pendingMigrations []migration

func runMigrations(ctx context.Context, conn *sql.Conn, logger *slog.Logger) error {
	for _, m := range pendingMigrations {
		if err := runMigration(ctx, conn, logger, m.name, m.fn); err != nil {
			return err
		}
	}
	return nil
}

func runMigration(ctx context.Context, conn *sql.Conn, logger *slog.Logger, name string, fn migrationFn) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, "select exists(select 1 from migrations where name = ?)", name).Scan(&exists); err != nil {
		return err
	}
	if exists {
		logger.Debug("skipped migration, already applied", "name", name)
		return nil
	}

	if err := fn(tx); err != nil {
		logger.Error("migration failed", "name", name, "error", err)
		return err
	}
	if _, err := tx.Exec("insert into migrations (name) values (?)", name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Info("migration applied", "name", name)
	return nil
}
