package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jchantrell/goarh/internal/archive"
)

var addCmd = &cobra.Command{
	Use:   "add <archive.arh> <local-file> <archive-path>",
	Short: "Add or replace a file in an archive",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		localPath, archivePath := args[1], args[2]

		data, err := os.ReadFile(localPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", localPath, err)
		}

		arhPath, ardPath := archivePaths(args[0])
		a, err := archive.Open(arhPath, ardPath)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Write(archivePath, data, cfg.Compress); err != nil {
			return fmt.Errorf("writing %s: %w", archivePath, err)
		}
		if err := a.Commit(); err != nil {
			return fmt.Errorf("committing archive: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
