package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jchantrell/goarh/internal/arh"
)

// schemaDDL creates the tables a manifest database needs to let
// `arhtool query` run ad-hoc SQL over an archive's listing without
// touching the ARH/ARD files themselves.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
	id                INTEGER PRIMARY KEY,
	path              TEXT NOT NULL UNIQUE,
	data_offset       INTEGER NOT NULL,
	compressed_size   INTEGER NOT NULL,
	uncompressed_size INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
`

// Open creates or opens the SQLite manifest at path and ensures its
// schema exists.
func Open(ctx context.Context, path string) (*Database, error) {
	db, err := newDatabase(defaultConnOptions(path))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("manifest: apply schema: %w", err)
	}
	return db, nil
}

// FileRecord is one row as reflected into the manifest.
type FileRecord struct {
	ID   uint32
	Path string
	Meta arh.FileMeta
}

// Rebuild replaces the manifest's file listing with files, inside a
// single transaction so a reader never sees a half-synced table.
func (d *Database) Rebuild(ctx context.Context, files []FileRecord) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("manifest: clear files: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO files (id, path, data_offset, compressed_size, uncompressed_size) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("manifest: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, f.ID, f.Path, f.Meta.DataOffset, f.Meta.CompressedSize, f.Meta.UncompressedSize); err != nil {
			return fmt.Errorf("manifest: insert %q: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

// Lookup returns the record for path, if present.
func (d *Database) Lookup(ctx context.Context, path string) (FileRecord, bool, error) {
	row := d.QueryRow(ctx, `SELECT id, path, data_offset, compressed_size, uncompressed_size FROM files WHERE path = ?`, path)
	var rec FileRecord
	err := row.Scan(&rec.ID, &rec.Path, &rec.Meta.DataOffset, &rec.Meta.CompressedSize, &rec.Meta.UncompressedSize)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FileRecord{}, false, nil
		}
		return FileRecord{}, false, err
	}
	return rec, true, nil
}
