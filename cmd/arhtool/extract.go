package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jchantrell/goarh/internal/archive"
	"github.com/jchantrell/goarh/internal/export"
	"github.com/jchantrell/goarh/internal/utils"
)

var extractOutputDir string

var extractCmd = &cobra.Command{
	Use:   "extract <archive.arh> [path...]",
	Short: "Extract files from an archive to disk",
	Long: `Extract copies files out of an archive and onto disk, preserving directory
structure. With no paths given, every file in the archive is extracted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		arhPath, ardPath := archivePaths(args[0])
		a, err := archive.Open(arhPath, ardPath)
		if err != nil {
			return err
		}
		defer a.Close()

		var targets []string
		if len(args) > 1 {
			targets = args[1:]
		} else {
			targets, err = collectAllFiles(a, "/")
			if err != nil {
				return fmt.Errorf("enumerating archive contents: %w", err)
			}
		}

		slog.Info("extracting files", "count", len(targets), "output", extractOutputDir)

		progress := utils.NewProgress(len(targets), !noProgress)
		exporter := export.NewExporter(a, extractOutputDir)
		err = exporter.ExportFiles(targets, func(current, total int, description string) {
			progress.Update(current, description)
		})
		progress.Finish()
		if err != nil {
			return fmt.Errorf("extracting files: %w", err)
		}

		elapsed := time.Since(start)
		rate := float64(len(targets)) / elapsed.Seconds()
		slog.Info("extraction complete", "count", len(targets), "elapsed", utils.Duration(elapsed), "rate", utils.Rate(rate)+"/s")
		return nil
	},
}

// collectAllFiles walks the synthesized directory tree under dir and
// returns every file's full path.
func collectAllFiles(a *archive.Archive, dir string) ([]string, error) {
	entries, err := a.List(dir)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(dir, "/")
	var out []string
	for _, e := range entries {
		full := prefix + "/" + e.Name
		if e.Kind == archive.EntryDir {
			children, err := collectAllFiles(a, full)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		} else {
			out = append(out, full)
		}
	}
	return out, nil
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutputDir, "output", "o", ".", "directory to extract files into")
	rootCmd.AddCommand(extractCmd)
}
