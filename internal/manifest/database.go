package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database is a connection to an archive's SQLite manifest: a single
// `files` table reflecting the archive's own file listing, kept in sync
// by Rebuild and queried ad-hoc by `arhtool query`.
type Database struct {
	db *sql.DB
}

// connOptions configures the pragmas applied when a manifest connection
// is opened. The manifest is a single-table, single-writer file: there
// are no foreign keys to police, so unlike a general-purpose connection
// helper this only exposes the knobs that matter here -- WAL so a
// concurrent `arhtool query` can read while a rebuild is mid-write, and
// a busy timeout so a reader never hard-fails on a transient lock.
type connOptions struct {
	path        string
	walMode     bool
	busyTimeout time.Duration
}

func defaultConnOptions(path string) *connOptions {
	return &connOptions{path: path, walMode: true, busyTimeout: 30 * time.Second}
}

// newDatabase opens (creating if necessary) the SQLite file described by
// options.
func newDatabase(options *connOptions) (*Database, error) {
	if options.path == "" {
		return nil, fmt.Errorf("manifest: database path cannot be empty")
	}
	if err := ensureDirectory(options.path); err != nil {
		return nil, fmt.Errorf("manifest: creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", buildConnectionString(options))
	if err != nil {
		return nil, fmt.Errorf("manifest: opening database %s: %w", options.path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("manifest: testing database connection: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the underlying connection.
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return fmt.Errorf("manifest: closing database connection: %w", err)
	}
	return nil
}

// BeginTx starts a transaction, used by Rebuild to swap the file listing
// in one atomic step.
func (d *Database) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	if d.db == nil {
		return nil, fmt.Errorf("manifest: database connection is closed")
	}
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("manifest: starting transaction: %w", err)
	}
	return tx, nil
}

// Exec runs a statement that doesn't return rows, used to apply the
// manifest's schema DDL.
func (d *Database) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if d.db == nil {
		return nil, fmt.Errorf("manifest: database connection is closed")
	}
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("manifest: executing query: %w", err)
	}
	return result, nil
}

// Query runs a statement that returns rows, used by `arhtool query` for
// ad-hoc SQL and schema introspection.
func (d *Database) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if d.db == nil {
		return nil, fmt.Errorf("manifest: database connection is closed")
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("manifest: executing query: %w", err)
	}
	return rows, nil
}

// QueryRow runs a statement expected to return at most one row, used by
// Lookup.
func (d *Database) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}

// HasExtraTables reports whether the manifest file contains any table
// besides the one Rebuild manages, which only happens if something
// other than this package wrote to the file directly (e.g. a user
// running arbitrary SQL against the .manifest.db with an external
// sqlite3 client).
func (d *Database) HasExtraTables(ctx context.Context) (bool, error) {
	if d.db == nil {
		return false, fmt.Errorf("manifest: database connection is closed")
	}
	const query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != 'files'`
	var count int
	if err := d.QueryRow(ctx, query).Scan(&count); err != nil {
		return false, fmt.Errorf("manifest: checking for extra tables: %w", err)
	}
	return count > 0, nil
}

func buildConnectionString(options *connOptions) string {
	pragmas := []string{fmt.Sprintf("busy_timeout=%d", int(options.busyTimeout.Milliseconds()))}
	if options.walMode {
		pragmas = append(pragmas, "journal_mode=WAL")
	}
	return options.path + "?" + strings.Join(pragmas, "&")
}

func ensureDirectory(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
