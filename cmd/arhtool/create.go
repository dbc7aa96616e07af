package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jchantrell/goarh/internal/archive"
	"github.com/jchantrell/goarh/internal/utils"
)

var createCmd = &cobra.Command{
	Use:   "create <archive.arh>",
	Short: "Create a new, empty archive pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arhPath, ardPath := archivePaths(args[0])
		if ws.FileExists(arhPath) {
			return fmt.Errorf("%s already exists", arhPath)
		}

		a, err := archive.Open(arhPath, ardPath, archive.WithBlockSizePow(cfg.BlockSizePow))
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Commit(); err != nil {
			return fmt.Errorf("committing new archive: %w", err)
		}
		slog.Info("created archive", "path", arhPath, "size", utils.Number(ws.FileSize(arhPath)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
