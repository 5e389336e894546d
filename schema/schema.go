// Package schema declares the login store's three tables — the local
// overlay, the server mirror, and sync metadata — and owns the
// forward-only migration ledger, following the same
// create-tables-then-run-pending-migrations shape as the teacher's
// appview/db package.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a *sql.DB opened and migrated for the login store schema.
// It embeds *sql.DB so callers can use it directly as a
// database/sql.Execer-compatible value in the logins package.
type DB struct {
	*sql.DB
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger attaches a logger used while running migrations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Open opens (or creates) the sqlite database at path, applies the
// connection-string pragmas the store requires, creates the schema if
// absent, and runs any pending migrations.
//
// The store is a single-writer component (spec.md §5): only one
// connection to the underlying file should ever hold the write lock,
// so Open pins the pool to a single connection.
func Open(path string, opts ...Option) (*DB, error) {
	o := &options{logger: slog.Default()}
	for _, fn := range opts {
		fn(o)
	}

	// _journal_mode=WAL and _foreign_keys=1 mirror the teacher's own
	// connection string idiom (appview/db.Make); temp_store=2 is the
	// "keep temp storage in memory" pragma spec.md §6.1 requires,
	// mirroring the original db.rs's db.set_pragma("temp_store", 2).
	dsn := []string{
		"_foreign_keys=1",
		"_journal_mode=WAL",
		"_synchronous=NORMAL",
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite3", path+sep+strings.Join(dsn, "&"))
	if err != nil {
		return nil, fmt.Errorf("schema: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema: acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "pragma temp_store = 2;"); err != nil {
		return nil, fmt.Errorf("schema: set temp_store pragma: %w", err)
	}

	if _, err := conn.ExecContext(ctx, createTablesSQL); err != nil {
		return nil, fmt.Errorf("schema: create tables: %w", err)
	}

	if err := runMigrations(ctx, conn, o.logger); err != nil {
		return nil, fmt.Errorf("schema: migrations: %w", err)
	}

	return &DB{db}, nil
}

// OpenInMemory opens a private in-memory database, useful for tests
// and for the import_multiple/wipe worked examples.
func OpenInMemory(opts ...Option) (*DB, error) {
	return Open("file::memory:?cache=private", opts...)
}

func (d *DB) Close() error {
	return d.DB.Close()
}

// CommonCols lists the columns shared by loginsL and loginsM, in the
// order every SELECT against either table uses; keeping the list in
// one place is what lets get_all/get_by_id be expressed as a single
// UNION ALL of two otherwise-identical queries.
const CommonCols = `guid, hostname, httpRealm, formSubmitURL, usernameField,
	passwordField, timesUsed, username, password, timeCreated,
	timeLastUsed, timePasswordChanged`

const createTablesSQL = `
create table if not exists loginsL (
	guid text primary key,
	hostname text not null,
	httpRealm text,
	formSubmitURL text,
	usernameField text not null default '',
	passwordField text not null default '',
	timesUsed integer not null default 0,
	username text not null default '',
	password text not null default '',
	timeCreated integer not null default 0,
	timeLastUsed integer not null default 0,
	timePasswordChanged integer not null default 0,
	local_modified integer,
	is_deleted integer not null default 0,
	sync_status integer not null default 0
);

create table if not exists loginsM (
	guid text primary key,
	hostname text not null,
	httpRealm text,
	formSubmitURL text,
	usernameField text not null default '',
	passwordField text not null default '',
	timesUsed integer not null default 0,
	username text not null default '',
	password text not null default '',
	timeCreated integer not null default 0,
	timeLastUsed integer not null default 0,
	timePasswordChanged integer not null default 0,
	server_modified integer not null default 0,
	is_overridden integer not null default 0
);

create table if not exists loginsSyncMeta (
	key text primary key,
	value text
);

create table if not exists migrations (
	id integer primary key autoincrement,
	name text unique
);
`
