// Package export copies files out of an archive and onto disk, in bulk,
// reporting progress as it goes.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileLoader reads a single file's decompressed contents by path. *archive.Archive
// satisfies this with its Read method.
type FileLoader interface {
	Read(path string) ([]byte, error)
}

// Exporter copies files from a FileLoader to a directory on disk.
type Exporter struct {
	loader    FileLoader
	outputDir string
}

// NewExporter returns an Exporter that writes under outputDir.
func NewExporter(loader FileLoader, outputDir string) *Exporter {
	return &Exporter{loader: loader, outputDir: outputDir}
}

// ProgressCallback is called after each file is written.
type ProgressCallback func(current, total int, description string)

// ExportFiles copies each of files to outputDir, preserving directory
// structure, and reports progress through progressCallback.
func (e *Exporter) ExportFiles(files []string, progressCallback ProgressCallback) error {
	if len(files) == 0 {
		return nil
	}
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	total := len(files)
	for i, path := range files {
		data, err := e.loader.Read(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		outputPath := filepath.Join(e.outputDir, filepath.FromSlash(strings.TrimPrefix(path, "/")))
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outputPath, err)
		}
		slog.Debug("extracted file", "path", path, "output", outputPath)

		if progressCallback != nil {
			progressCallback(i+1, total, path)
		}
	}
	return nil
}
