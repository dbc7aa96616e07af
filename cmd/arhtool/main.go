// Command arhtool reads and writes ARH/ARD archive pairs.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/jchantrell/goarh/internal/config"
	"github.com/jchantrell/goarh/internal/workspace"
)

var (
	cfg     *config.Config
	cfgFile string
	ws      *workspace.Workspace

	blockSizePow uint16
	compress     bool
	logLevel     string
	logFormat    string
	noProgress   bool
)

var rootCmd = &cobra.Command{
	Use:   "arhtool",
	Short: "Inspect and edit ARH/ARD game archive pairs",
	Long: `arhtool reads and writes the paired ARH (metadata) and ARD (data) files
used by a proprietary game archive format: an XOR-obfuscated path trie
backed by a flat, optionally compressed data region.

It can list, extract, add, remove, and rename files in place, and can
reflect an archive's listing into a SQLite manifest for ad-hoc querying.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		ws = workspace.New(cfg.WorkspaceDir)

		if cmd.Flags().Changed("block-size-pow") {
			cfg.BlockSizePow = blockSizePow
		}
		if cmd.Flags().Changed("compress") {
			cfg.Compress = compress
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}

		var level slog.Level
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		var handler slog.Handler
		if cfg.LogFormat == "json" {
			handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		} else {
			handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
		}
		slog.SetDefault(slog.New(handler))

		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is arhtool.yaml in $HOME, then in pwd)")
	rootCmd.PersistentFlags().Uint16Var(&blockSizePow, "block-size-pow", 0, "ARD block size as a power of two")
	rootCmd.PersistentFlags().BoolVar(&compress, "compress", true, "compress file bodies written into the archive")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bar")
}

// archivePaths resolves an ARH path passed on the command line against
// the workspace root (relative names live under it, absolute ones are
// used as given) and derives the paired ARD path alongside it: same
// name, .ard extension.
func archivePaths(arg string) (string, string) {
	arhPath := ws.Resolve(arg)
	if err := ws.EnsureDir(filepath.Dir(arhPath)); err != nil {
		slog.Warn("could not create workspace directory", "dir", filepath.Dir(arhPath), "error", err)
	}

	ardPath := arhPath
	if len(ardPath) > 4 && ardPath[len(ardPath)-4:] == ".arh" {
		ardPath = ardPath[:len(ardPath)-4] + ".ard"
	} else {
		ardPath += ".ard"
	}
	return arhPath, ardPath
}
