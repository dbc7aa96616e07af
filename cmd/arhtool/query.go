package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jchantrell/goarh/internal/archive"
	"github.com/jchantrell/goarh/internal/manifest"
)

var queryCmd = &cobra.Command{
	Use:   "query <archive.arh> [sql]",
	Short: "Reflect an archive's listing into a SQLite manifest and query it",
	Long: `Query syncs an archive's file listing into a SQLite manifest database
alongside it, then either runs the given SQL against it or, with --tables
or --schema, inspects the manifest's own structure.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		listTables, err := cmd.Flags().GetBool("tables")
		if err != nil {
			return err
		}
		schemaTable, err := cmd.Flags().GetString("schema")
		if err != nil {
			return err
		}

		arhPath, ardPath := archivePaths(args[0])
		a, err := archive.Open(arhPath, ardPath)
		if err != nil {
			return err
		}
		defer a.Close()

		db, err := manifest.Open(ctx, arhPath+cfg.ManifestSuffix)
		if err != nil {
			return fmt.Errorf("opening manifest: %w", err)
		}
		defer db.Close()

		if err := syncManifest(ctx, a, db); err != nil {
			return fmt.Errorf("syncing manifest: %w", err)
		}
		if extra, err := db.HasExtraTables(ctx); err != nil {
			slog.Warn("checking manifest for stray tables failed", "error", err)
		} else if extra {
			slog.Warn("manifest contains tables besides 'files', possibly from external writes", "path", arhPath+cfg.ManifestSuffix)
		}

		if listTables {
			return printTables(ctx, db)
		}
		if schemaTable != "" {
			return printSchema(ctx, db, schemaTable)
		}
		if len(args) > 1 {
			return runQuery(ctx, db, args[1])
		}
		return fmt.Errorf("no query provided, use --tables to list tables or --schema <table> to show schema")
	},
}

func syncManifest(ctx context.Context, a *archive.Archive, db *manifest.Database) error {
	files, err := collectAllFiles(a, "/")
	if err != nil {
		return err
	}
	records := make([]manifest.FileRecord, 0, len(files))
	for _, path := range files {
		m, err := a.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		records = append(records, manifest.FileRecord{ID: m.ID, Path: path, Meta: m})
	}
	return db.Rebuild(ctx, records)
}

func printTables(ctx context.Context, db *manifest.Database) error {
	rows, err := db.Query(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	fmt.Println("Available tables:")
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		fmt.Printf("  %s\n", name)
	}
	return rows.Err()
}

func printSchema(ctx context.Context, db *manifest.Database, table string) error {
	rows, err := db.Query(ctx, `PRAGMA table_info(`+table+`)`)
	if err != nil {
		return fmt.Errorf("getting schema for table %s: %w", table, err)
	}
	defer rows.Close()

	fmt.Printf("Schema for table %q:\n", table)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var defaultValue, primaryKey interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &primaryKey); err != nil {
			return err
		}
		fmt.Printf("  %-20s %-12s notnull=%d pk=%v\n", name, dataType, notNull, primaryKey)
	}
	return rows.Err()
}

func runQuery(ctx context.Context, db *manifest.Database, query string) error {
	rows, err := db.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(columns, "\t"))

	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		parts := make([]string, len(values))
		for i, v := range values {
			if v == nil {
				parts[i] = "NULL"
			} else {
				parts[i] = fmt.Sprintf("%v", v)
			}
		}
		fmt.Println(strings.Join(parts, "\t"))
	}
	return rows.Err()
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Bool("tables", false, "list available tables")
	queryCmd.Flags().String("schema", "", "show schema for the given table")
}
